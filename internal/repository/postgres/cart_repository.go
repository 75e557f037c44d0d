package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CartRepository implements maintenance.CartStore using PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ExpireInactive calls the expire_inactive_carts() procedure.
func (r *CartRepository) ExpireInactive(ctx context.Context) (int64, error) {
	var expired int64
	if err := ConnFromCtx(ctx, r.pool).QueryRow(ctx, `SELECT expire_inactive_carts()`).Scan(&expired); err != nil {
		return 0, fmt.Errorf("expire inactive carts: %w", err)
	}
	return expired, nil
}
