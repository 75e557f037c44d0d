package order

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents where an order is in its lifecycle
type Status string

const (
	StatusPending        Status = "pending"
	StatusInPreparation  Status = "in_preparation"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// Order is a checkout record owned by a user. Items are kept opaque.
type Order struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     json.RawMessage
	Total     decimal.Decimal
	Status    Status
	CreatedAt time.Time
}

// ShortID is the first eight characters of the order id, used in user-facing labels.
func (o *Order) ShortID() string {
	return ShortID(o.ID)
}

// ShortID returns the first eight characters of id.
func ShortID(id uuid.UUID) string {
	return id.String()[:8]
}

// OwnedBy reports whether userID owns the order.
func (o *Order) OwnedBy(userID uuid.UUID) bool {
	return o.UserID == userID
}
