package maintenance

import (
	"context"
	"time"

	"github.com/tudogo/functions/internal/domain/errors"
)

// JobType names a batch maintenance operation
type JobType string

const (
	JobExpireCarts           JobType = "expire_carts"
	JobCancelUnpaidOrders    JobType = "cancel_unpaid_orders"
	JobCleanOldNotifications JobType = "clean_old_notifications"
)

// AllJobs lists every job in scheduling order.
var AllJobs = []JobType{JobExpireCarts, JobCancelUnpaidOrders, JobCleanOldNotifications}

// ParseJobType resolves a job name. An empty name is a validation error and an
// unrecognised one wraps ErrUnknownJobType.
func ParseJobType(raw string) (JobType, error) {
	switch j := JobType(raw); j {
	case JobExpireCarts, JobCancelUnpaidOrders, JobCleanOldNotifications:
		return j, nil
	case "":
		return "", errors.NewValidationError("jobType", "Job type is required")
	default:
		return "", errors.NewDomainError("unknown_job_type", "Unknown job type: "+raw, errors.ErrUnknownJobType)
	}
}

// SuccessMessage is reported when the job completes.
func (j JobType) SuccessMessage() string {
	switch j {
	case JobExpireCarts:
		return "Inactive carts expired successfully"
	case JobCancelUnpaidOrders:
		return "Unpaid orders cancelled successfully"
	case JobCleanOldNotifications:
		return "Old notifications cleaned successfully"
	default:
		return ""
	}
}

// FailureMessage is reported when the job's store call fails.
func (j JobType) FailureMessage() string {
	switch j {
	case JobExpireCarts:
		return "Failed to expire inactive carts"
	case JobCancelUnpaidOrders:
		return "Failed to cancel unpaid orders"
	case JobCleanOldNotifications:
		return "Failed to clean old notifications"
	default:
		return ""
	}
}

// Result is the outcome of one job run.
type Result struct {
	Job      JobType
	Message  string
	Affected int64
	RanAt    time.Time
}

// CartStore runs the stored procedure that expires inactive carts
type CartStore interface {
	ExpireInactive(ctx context.Context) (int64, error)
}
