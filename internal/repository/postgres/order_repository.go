package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/order"
)

const orderColumns = `id, user_id, items, total::text, status, created_at`

// OrderRepository implements order.Repository using PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// GetByIDForUser retrieves an order only when userID owns it.
func (r *OrderRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*order.Order, error) {
	return scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID))
}

// CancelUnpaid cancels stale in-preparation orders that never got an approved payment.
func (r *OrderRepository) CancelUnpaid(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders o
		    SET status = $1
		  WHERE o.status = $2
		    AND o.created_at < $3
		    AND NOT EXISTS (
		        SELECT 1 FROM payments p
		         WHERE p.order_id = o.id AND p.status = 'approved'
		    )`,
		string(order.StatusCancelled), string(order.StatusInPreparation), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel unpaid orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOrder(s scanner) (*order.Order, error) {
	o := &order.Order{}
	var (
		items  []byte
		total  string
		status string
	)
	if err := s.Scan(&o.ID, &o.UserID, &items, &total, &status, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	var err error
	if o.Total, err = parseNumeric(total); err != nil {
		return nil, fmt.Errorf("parse order total: %w", err)
	}
	o.Items = items
	o.Status = order.Status(status)
	return o, nil
}
