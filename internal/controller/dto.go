package controller

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tudogo/functions/internal/domain/catalog"
	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/domain/receipt"
)

// ErrorResponse is the body of every failed request. Valid is only set by
// receipt verification.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Valid   *bool  `json:"valid,omitempty"`
}

// --- Payment intent ---

type CreateIntentRequest struct {
	OrderID     string           `json:"orderId" validate:"required"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Description string           `json:"description"`
}

func (CreateIntentRequest) requiredMessage() string { return "Order ID and amount are required" }

type CreateIntentResponse struct {
	PaymentID  string              `json:"paymentId"`
	PixPayload *payment.PixPayload `json:"pixPayload"`
	QRCodeURL  string              `json:"qrCodeUrl"`
	ExpiresAt  time.Time           `json:"expiresAt"`
}

// --- Payment webhook ---

type WebhookRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type webhookData struct {
	ID string `json:"id"`
}

type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResponse acknowledges a request the service chose not to act on.
type MessageResponse struct {
	Message string `json:"message"`
}

// --- Receipts ---

type IssueReceiptRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	UserID  string `json:"userId" validate:"required"`
}

func (IssueReceiptRequest) requiredMessage() string { return "Order ID and User ID are required" }

type IssueReceiptResponse struct {
	Success     bool         `json:"success"`
	ReceiptData receipt.Data `json:"receiptData"`
	QRCodeURL   string       `json:"qrCodeUrl"`
	ExpiresAt   time.Time    `json:"expiresAt"`
}

type PresentedReceipt struct {
	OrderID   string `json:"orderId"`
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"`
	Token     string `json:"token"`
}

type VerifyReceiptRequest struct {
	ReceiptData *PresentedReceipt `json:"receiptData" validate:"required"`
	StoreID     string            `json:"storeId" validate:"required"`
}

func (VerifyReceiptRequest) requiredMessage() string { return "Receipt data and store ID are required" }

type VerifiedOrder struct {
	ID        string          `json:"id"`
	Items     json.RawMessage `json:"items"`
	Total     json.Number     `json:"total"`
	OrderDate time.Time       `json:"orderDate"`
}

type VerifyReceiptResponse struct {
	Valid      bool          `json:"valid"`
	Order      VerifiedOrder `json:"order"`
	VerifiedAt time.Time     `json:"verifiedAt"`
}

// --- Catalog search ---

// SearchRequest carries the search filters from either the query string or
// a JSON body. Seller ids are validated when converted to a filter.
type SearchRequest struct {
	Query        string           `json:"query"`
	Type         string           `json:"type"`
	Category     string           `json:"category"`
	RestaurantID string           `json:"restaurantId"`
	MarketID     string           `json:"marketId"`
	ProviderID   string           `json:"providerId"`
	MinPrice     *decimal.Decimal `json:"minPrice"`
	MaxPrice     *decimal.Decimal `json:"maxPrice"`
	Page         int              `json:"page"`
	PageSize     int              `json:"pageSize"`
}

type SearchResponse struct {
	Data       []catalog.Product  `json:"data"`
	Pagination catalog.Pagination `json:"pagination"`
}

// --- Maintenance jobs ---

type RunJobRequest struct {
	JobType string `json:"jobType"`
}

type RunJobResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Affected int64  `json:"affected"`
}
