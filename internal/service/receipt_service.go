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
	"github.com/tudogo/functions/internal/domain/receipt"
	"github.com/tudogo/functions/internal/infrastructure/observability"
)

// ReceiptSettings controls receipt lifetime and verification strictness.
type ReceiptSettings struct {
	TTL         time.Duration
	VerifyToken bool
}

// ReceiptService issues and verifies in-store pickup receipts.
type ReceiptService struct {
	orders   order.Repository
	payments payment.Repository
	qr       QRRenderer
	settings ReceiptSettings
	metrics  *observability.Metrics
	logger   zerolog.Logger
	clock    Clock
}

func NewReceiptService(
	orders order.Repository,
	payments payment.Repository,
	qr QRRenderer,
	settings ReceiptSettings,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *ReceiptService {
	if settings.TTL <= 0 {
		settings.TTL = receipt.DefaultTTL
	}
	return &ReceiptService{
		orders:   orders,
		payments: payments,
		qr:       qr,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (s *ReceiptService) WithClock(c Clock) *ReceiptService {
	s.clock = c
	return s
}

// Issue builds a receipt for an order the user owns once it has an approved
// payment. Receipts are not stored.
func (s *ReceiptService) Issue(ctx context.Context, req IssueReceiptRequest) (*IssueReceiptResponse, error) {
	ctx, span := observability.StartSpan(ctx, "ReceiptService.Issue",
		attribute.String("order.id", req.OrderID.String()))
	defer span.End()

	o, err := s.orders.GetByIDForUser(ctx, req.OrderID, req.UserID)
	if err != nil {
		return nil, orderLookupError(err, "order_not_owned", "Order not found or does not belong to user")
	}

	p, err := s.payments.GetApprovedForOrder(ctx, o.ID)
	if err != nil {
		return nil, approvedPaymentError(err)
	}

	now := s.clock.now()
	r := receipt.Issue(o, p, now)

	qrURL, err := s.qr.URL(r.Data())
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}

	s.metrics.ReceiptIssued()
	s.logger.Info().
		Str("order_id", o.ID.String()).
		Str("payment_id", p.ID.String()).
		Msg("receipt issued")

	return &IssueReceiptResponse{
		Receipt:   r,
		QRCodeURL: qrURL,
		ExpiresAt: now.Add(s.settings.TTL),
	}, nil
}

// Verify checks a presented receipt: the order still belongs to the user, it
// has an approved payment and the receipt is within its lifetime. With token
// verification enabled the token must match the presented fields.
func (s *ReceiptService) Verify(ctx context.Context, req VerifyReceiptRequest) (*VerifyReceiptResponse, error) {
	ctx, span := observability.StartSpan(ctx, "ReceiptService.Verify",
		attribute.String("order.id", req.Receipt.OrderID.String()),
		attribute.String("store.id", req.StoreID))
	defer span.End()

	resp, err := s.verify(ctx, req)
	result := "valid"
	if err != nil {
		result = verificationResult(err)
	}
	s.metrics.ReceiptVerified(result)
	s.logger.Info().
		Str("order_id", req.Receipt.OrderID.String()).
		Str("store_id", req.StoreID).
		Str("result", result).
		Msg("receipt verification")
	return resp, err
}

func (s *ReceiptService) verify(ctx context.Context, req VerifyReceiptRequest) (*VerifyReceiptResponse, error) {
	if req.StoreID == "" {
		return nil, domainErrors.NewValidationError("storeId", "Receipt data and store ID are required")
	}

	presented := req.Receipt
	o, err := s.orders.GetByIDForUser(ctx, presented.OrderID, presented.UserID)
	if err != nil {
		return nil, orderLookupError(err, "order_invalid", "Order not found or invalid")
	}

	if _, err := s.payments.GetApprovedForOrder(ctx, o.ID); err != nil {
		return nil, approvedPaymentError(err)
	}

	issuedAt, err := receipt.ParseTimestamp(presented.Timestamp)
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	if err := receipt.CheckFresh(issuedAt, now, s.settings.TTL); err != nil {
		return nil, domainErrors.NewDomainError("receipt_expired", "Receipt expired", err)
	}

	if s.settings.VerifyToken {
		if err := presented.CheckToken(); err != nil {
			return nil, domainErrors.NewDomainError("invalid_token", "Invalid receipt token", err)
		}
	}

	return &VerifyReceiptResponse{Order: o, VerifiedAt: now}, nil
}

func orderLookupError(err error, code, message string) error {
	if errors.Is(err, domainErrors.ErrOrderNotFound) {
		return domainErrors.NewDomainError(code, message, err)
	}
	return domainErrors.NewStoreError("Error fetching order", err)
}

func approvedPaymentError(err error) error {
	if errors.Is(err, domainErrors.ErrPaymentNotApproved) {
		return domainErrors.NewDomainError("payment_not_approved", "Payment not found or not approved", err)
	}
	return domainErrors.NewStoreError("Error fetching payment", err)
}

func verificationResult(err error) string {
	var ve *domainErrors.ValidationError
	switch {
	case errors.As(err, &ve):
		return "invalid_request"
	case errors.Is(err, domainErrors.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, domainErrors.ErrPaymentNotApproved):
		return "payment_not_approved"
	case errors.Is(err, domainErrors.ErrReceiptExpired):
		return "expired"
	case errors.Is(err, domainErrors.ErrReceiptTokenMismatch):
		return "token_mismatch"
	default:
		return "error"
	}
}
