package order

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for order persistence
type Repository interface {
	// GetByID retrieves an order by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// GetByIDForUser retrieves an order by ID only if it is owned by userID
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*Order, error)

	// CancelUnpaid cancels in-preparation orders created before cutoff that
	// have no approved payment, returning the number of orders cancelled
	CancelUnpaid(ctx context.Context, cutoff time.Time) (int64, error)
}
