package payment

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// Repository defines the interface for payment persistence
type Repository interface {
	// Create inserts a new payment
	Create(ctx context.Context, payment *Payment) error

	// GetLatestByGatewayID returns the newest attempt carrying gatewayID,
	// locking it for the rest of the transaction. Every attempt for an order
	// shares the gateway id. Returns ErrPaymentNotFound when no row matches.
	GetLatestByGatewayID(ctx context.Context, gatewayID string) (*Payment, error)

	// UpdateStatus sets status and replaces gateway data on a single payment.
	UpdateStatus(ctx context.Context, id uuid.UUID, status PaymentStatus, gatewayData json.RawMessage) error

	// GetApprovedForOrder returns the most recently updated approved payment
	// for an order, or ErrPaymentNotApproved
	GetApprovedForOrder(ctx context.Context, orderID uuid.UUID) (*Payment, error)
}
