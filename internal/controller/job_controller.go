package controller

import (
	"net/http"

	"github.com/tudogo/functions/internal/service"
)

// JobController triggers maintenance jobs on demand.
type JobController struct {
	maintenanceService *service.MaintenanceService
}

func NewJobController(maintenanceService *service.MaintenanceService) *JobController {
	return &JobController{maintenanceService: maintenanceService}
}

// Run handles POST /api/v1/jobs
func (h *JobController) Run(w http.ResponseWriter, r *http.Request) {
	var req RunJobRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.maintenanceService.RunJob(r.Context(), req.JobType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RunJobResponse{
		Success:  true,
		Message:  res.Message,
		Affected: res.Affected,
	})
}
