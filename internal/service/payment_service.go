package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/infrastructure/observability"
)

// QRRenderer turns a payload into a scannable image URL.
type QRRenderer interface {
	URL(payload any) (string, error)
}

// PaymentSettings holds the merchant identity and intent rules.
type PaymentSettings struct {
	Merchant          payment.Merchant
	IntentTTL         time.Duration
	EnforceOrderTotal bool
}

// PaymentService creates PIX payment intents for orders.
type PaymentService struct {
	orders   order.Repository
	payments payment.Repository
	qr       QRRenderer
	settings PaymentSettings
	metrics  *observability.Metrics
	logger   zerolog.Logger
	clock    Clock
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	orders order.Repository,
	payments payment.Repository,
	qr QRRenderer,
	settings PaymentSettings,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *PaymentService {
	if settings.IntentTTL <= 0 {
		settings.IntentTTL = 30 * time.Minute
	}
	return &PaymentService{
		orders:   orders,
		payments: payments,
		qr:       qr,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (s *PaymentService) WithClock(c Clock) *PaymentService {
	s.clock = c
	return s
}

// CreateIntent records a pending PIX payment for an existing order and returns
// the payload the payer scans.
func (s *PaymentService) CreateIntent(ctx context.Context, req CreateIntentRequest) (*CreateIntentResponse, error) {
	ctx, span := observability.StartSpan(ctx, "PaymentService.CreateIntent",
		attribute.String("order.id", req.OrderID.String()))
	defer span.End()

	if err := payment.ValidateAmount(req.Amount); err != nil {
		s.metrics.PaymentIntent("rejected")
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		s.metrics.PaymentIntent("rejected")
		if errors.Is(err, domainErrors.ErrOrderNotFound) {
			return nil, domainErrors.NewDomainError("not_found", "Order not found", err)
		}
		return nil, domainErrors.NewStoreError("Error fetching order", err)
	}

	if s.settings.EnforceOrderTotal && !req.Amount.Equal(o.Total) {
		s.metrics.PaymentIntent("rejected")
		return nil, domainErrors.NewDomainError("amount_mismatch", "Amount does not match order total", domainErrors.ErrAmountMismatch)
	}

	now := s.clock.now()
	p, payload, err := payment.NewPixPayment(o.ID, req.Amount, req.Description, s.settings.Merchant, now)
	if err != nil {
		return nil, err
	}

	if err := s.payments.Create(ctx, p); err != nil {
		s.metrics.PaymentIntent("failed")
		span.RecordError(err)
		return nil, domainErrors.NewStoreError("Error creating payment record", err)
	}

	qrURL, err := s.qr.URL(payload)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}

	s.metrics.PaymentIntent("created")
	s.logger.Info().
		Str("payment_id", p.ID.String()).
		Str("order_id", o.ID.String()).
		Str("gateway_id", p.GatewayID).
		Str("amount", payload.Amount).
		Msg("payment intent created")

	return &CreateIntentResponse{
		Payment:   p,
		Payload:   payload,
		QRCodeURL: qrURL,
		ExpiresAt: now.Add(s.settings.IntentTTL),
	}, nil
}
