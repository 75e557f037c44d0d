package payment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/order"
)

// PaymentType represents the payment method
type PaymentType string

const (
	TypePix PaymentType = "pix"
)

// PaymentStatus represents the gateway-reported payment status
type PaymentStatus string

const (
	StatusPending  PaymentStatus = "pending"
	StatusApproved PaymentStatus = "approved"
	StatusRefused  PaymentStatus = "refused"
)

// gatewayIDLength is the maximum txid length accepted by PIX gateways.
const gatewayIDLength = 25

// Payment represents a payment attempt against an order
type Payment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	Type        PaymentType
	Total       decimal.Decimal
	Status      PaymentStatus
	GatewayID   string
	GatewayData json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PixPayload is the instant-payment instruction handed to the payer.
type PixPayload struct {
	PixKey       string `json:"pixKey"`
	Description  string `json:"description"`
	MerchantName string `json:"merchantName"`
	MerchantCity string `json:"merchantCity"`
	TxID         string `json:"txid"`
	Amount       string `json:"amount"`
}

// Merchant holds the receiving account details stamped on every PIX payload.
type Merchant struct {
	PixKey string
	Name   string
	City   string
}

// GatewayIDFor derives the gateway identifier for an order: the order id with
// hyphens removed, truncated to 25 characters.
func GatewayIDFor(orderID uuid.UUID) string {
	id := strings.ReplaceAll(orderID.String(), "-", "")
	if len(id) > gatewayIDLength {
		id = id[:gatewayIDLength]
	}
	return id
}

// DefaultDescription is the payload description used when the caller gives none.
func DefaultDescription(orderID uuid.UUID) string {
	return "Order #" + order.ShortID(orderID)
}

// FormatAmount renders amount with exactly two decimals.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// ValidateAmount checks the requested charge is a positive value.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	return nil
}

// NewPixPayment builds a pending PIX payment for an order together with the
// payload that is persisted as gateway data.
func NewPixPayment(orderID uuid.UUID, amount decimal.Decimal, description string, m Merchant, now time.Time) (*Payment, *PixPayload, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, nil, err
	}
	if description == "" {
		description = DefaultDescription(orderID)
	}

	gatewayID := GatewayIDFor(orderID)
	payload := &PixPayload{
		PixKey:       m.PixKey,
		Description:  description,
		MerchantName: m.Name,
		MerchantCity: m.City,
		TxID:         gatewayID,
		Amount:       FormatAmount(amount),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	return &Payment{
		ID:          uuid.New(),
		OrderID:     orderID,
		Type:        TypePix,
		Total:       amount,
		Status:      StatusPending,
		GatewayID:   gatewayID,
		GatewayData: data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, payload, nil
}

// IsApproved reports whether the gateway confirmed the payment.
func (p *Payment) IsApproved() bool {
	return p.Status == StatusApproved
}
