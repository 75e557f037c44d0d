package controller

import (
	"encoding/json"
	"net/http"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/receipt"
	"github.com/tudogo/functions/internal/service"
)

// ReceiptController issues pickup receipts and verifies them at stores.
type ReceiptController struct {
	receiptService *service.ReceiptService
}

func NewReceiptController(receiptService *service.ReceiptService) *ReceiptController {
	return &ReceiptController{receiptService: receiptService}
}

// Issue handles POST /api/v1/receipts
func (h *ReceiptController) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueReceiptRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	orderID, userID := parseUUID(req.OrderID), parseUUID(req.UserID)
	if orderID == nil || userID == nil {
		writeError(w, domainErrors.NewDomainError("order_not_owned", "Order not found or does not belong to user", domainErrors.ErrOrderNotFound))
		return
	}

	resp, err := h.receiptService.Issue(r.Context(), service.IssueReceiptRequest{OrderID: *orderID, UserID: *userID})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IssueReceiptResponse{
		Success:     true,
		ReceiptData: resp.Receipt.Data(),
		QRCodeURL:   resp.QRCodeURL,
		ExpiresAt:   resp.ExpiresAt,
	})
}

// Verify handles POST /api/v1/receipts/verify. Every failure body carries
// "valid": false.
func (h *ReceiptController) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyReceiptRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeVerifyError(w, err)
		return
	}

	orderID, userID := parseUUID(req.ReceiptData.OrderID), parseUUID(req.ReceiptData.UserID)
	if orderID == nil || userID == nil {
		writeVerifyError(w, domainErrors.NewDomainError("order_invalid", "Order not found or invalid", domainErrors.ErrOrderNotFound))
		return
	}

	resp, err := h.receiptService.Verify(r.Context(), service.VerifyReceiptRequest{
		Receipt: receipt.Presented{
			OrderID:   *orderID,
			UserID:    *userID,
			Timestamp: req.ReceiptData.Timestamp,
			Token:     req.ReceiptData.Token,
		},
		StoreID: req.StoreID,
	})
	if err != nil {
		writeVerifyError(w, err)
		return
	}

	o := resp.Order
	writeJSON(w, http.StatusOK, VerifyReceiptResponse{
		Valid: true,
		Order: VerifiedOrder{
			ID:        o.ID.String(),
			Items:     o.Items,
			Total:     json.Number(o.Total.String()),
			OrderDate: o.CreatedAt,
		},
		VerifiedAt: resp.VerifiedAt,
	})
}

func writeVerifyError(w http.ResponseWriter, err error) {
	status, resp := errorResponse(err)
	valid := false
	resp.Valid = &valid
	writeJSON(w, status, resp)
}
