package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
)

// Type tags a notification for client-side rendering
type Type string

const (
	TypePaymentApproved Type = "payment_approved"
	TypePaymentRefused  Type = "payment_refused"
)

// Notification is a user-facing message
type Notification struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	Type    Type
	Title   string
	Message string
	Read    bool
	SentAt  time.Time
}

// ForPaymentEvent builds the notification sent to the order owner when the
// gateway reports a payment outcome.
func ForPaymentEvent(event payment.WebhookEvent, o *order.Order, now time.Time) *Notification {
	n := &Notification{
		ID:     uuid.New(),
		UserID: o.UserID,
		SentAt: now,
	}

	switch event {
	case payment.EventApproved:
		n.Type = TypePaymentApproved
		n.Title = "Payment approved"
		n.Message = "Your payment for order #" + o.ShortID() + " was approved."
	case payment.EventRefused:
		n.Type = TypePaymentRefused
		n.Title = "Payment refused"
		n.Message = "Your payment for order #" + o.ShortID() + " was refused. Please try again."
	}
	return n
}

// Repository defines the interface for notification persistence
type Repository interface {
	// Create inserts a notification
	Create(ctx context.Context, n *Notification) error

	// DeleteReadBefore removes read notifications sent before cutoff
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Publisher pushes stored notifications to the delivery pipeline
type Publisher interface {
	Publish(ctx context.Context, n *Notification) error
}
