package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/payment"
)

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts a new payment.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payments
		 (id, order_id, type, total, status, gateway_id, gateway_data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)`,
		p.ID, p.OrderID, string(p.Type), numericArg(p.Total), string(p.Status),
		p.GatewayID, []byte(p.GatewayData), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetLatestByGatewayID retrieves the newest payment attempt for a gateway id
// and locks its row.
func (r *PaymentRepository) GetLatestByGatewayID(ctx context.Context, gatewayID string) (*payment.Payment, error) {
	p, err := scanPayment(r.db(ctx).QueryRow(ctx,
		`SELECT id, order_id, type, total::text, status, gateway_id, gateway_data, created_at, updated_at
		   FROM payments
		  WHERE gateway_id = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT 1
		    FOR UPDATE`, gatewayID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment by gateway id: %w", err)
	}
	return p, nil
}

// UpdateStatus sets the status and gateway data of one payment.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status payment.PaymentStatus, gatewayData json.RawMessage) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments
		    SET status = $1, gateway_data = $2, updated_at = NOW()
		  WHERE id = $3`,
		string(status), []byte(gatewayData), id,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

// GetApprovedForOrder retrieves the latest approved payment of an order.
func (r *PaymentRepository) GetApprovedForOrder(ctx context.Context, orderID uuid.UUID) (*payment.Payment, error) {
	p, err := scanPayment(r.db(ctx).QueryRow(ctx,
		`SELECT id, order_id, type, total::text, status, gateway_id, gateway_data, created_at, updated_at
		   FROM payments
		  WHERE order_id = $1 AND status = 'approved'
		  ORDER BY updated_at DESC
		  LIMIT 1`, orderID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotApproved
		}
		return nil, fmt.Errorf("get approved payment: %w", err)
	}
	return p, nil
}

func scanPayment(row scanner) (*payment.Payment, error) {
	p := &payment.Payment{}
	var (
		paymentType string
		total       string
		status      string
		gatewayData []byte
	)
	err := row.Scan(&p.ID, &p.OrderID, &paymentType, &total, &status, &p.GatewayID, &gatewayData, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Total, err = parseNumeric(total); err != nil {
		return nil, fmt.Errorf("parse payment total: %w", err)
	}
	p.Type = payment.PaymentType(paymentType)
	p.Status = payment.PaymentStatus(status)
	p.GatewayData = gatewayData
	return p, nil
}
