package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tudogo/functions/internal/domain/catalog"
	"github.com/tudogo/functions/internal/domain/maintenance"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/domain/receipt"
)

// Controllers convert their HTTP DTOs to these types.

type CreateIntentRequest struct {
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Description string
}

type CreateIntentResponse struct {
	Payment   *payment.Payment
	Payload   *payment.PixPayload
	QRCodeURL string
	ExpiresAt time.Time
}

type WebhookRequest struct {
	Event string
	Data  payment.WebhookData
}

type WebhookResponse struct {
	// Handled is false for event types the service does not act on.
	Handled   bool
	Duplicate bool
	Message   string
}

type IssueReceiptRequest struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
}

type IssueReceiptResponse struct {
	Receipt   *receipt.Receipt
	QRCodeURL string
	ExpiresAt time.Time
}

type VerifyReceiptRequest struct {
	Receipt receipt.Presented
	StoreID string
}

type VerifyReceiptResponse struct {
	Order      *order.Order
	VerifiedAt time.Time
}

type SearchResponse = catalog.Page

type RunJobResponse = maintenance.Result
