package controller

import (
	"encoding/json"
	"net/http"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/service"
)

// PaymentController handles payment intents and gateway callbacks.
type PaymentController struct {
	paymentService *service.PaymentService
	webhookService *service.WebhookService
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(paymentService *service.PaymentService, webhookService *service.WebhookService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		webhookService: webhookService,
	}
}

// CreateIntent handles POST /api/v1/payments/intents
func (h *PaymentController) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	orderID := parseUUID(req.OrderID)
	if orderID == nil {
		writeError(w, domainErrors.NewDomainError("not_found", "Order not found", domainErrors.ErrOrderNotFound))
		return
	}

	resp, err := h.paymentService.CreateIntent(r.Context(), service.CreateIntentRequest{
		OrderID:     *orderID,
		Amount:      *req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CreateIntentResponse{
		PaymentID:  resp.Payment.ID.String(),
		PixPayload: resp.Payload,
		QRCodeURL:  resp.QRCodeURL,
		ExpiresAt:  resp.ExpiresAt,
	})
}

// Webhook handles POST /api/v1/payments/webhook
func (h *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	var req WebhookRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	data := payment.WebhookData{Raw: req.Data}
	if _, known := payment.ParseWebhookEvent(req.Event); known {
		var d webhookData
		if len(req.Data) == 0 || json.Unmarshal(req.Data, &d) != nil || d.ID == "" {
			writeError(w, domainErrors.NewValidationError("data.id", "data.id is required"))
			return
		}
		data.ID = d.ID
	}

	resp, err := h.webhookService.HandleEvent(r.Context(), service.WebhookRequest{Event: req.Event, Data: data})
	if err != nil {
		writeError(w, err)
		return
	}

	if !resp.Handled {
		writeJSON(w, http.StatusOK, MessageResponse{Message: resp.Message})
		return
	}
	writeJSON(w, http.StatusOK, WebhookResponse{Success: true, Message: resp.Message})
}
