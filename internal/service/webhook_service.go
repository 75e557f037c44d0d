package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/notification"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/infrastructure/observability"
)

const duplicateDeliveryMessage = "Duplicate delivery ignored"

var errDuplicateDelivery = errors.New("duplicate delivery")

// DeliveryGuard records which (event, payment attempt) deliveries were
// already processed.
type DeliveryGuard interface {
	FirstDelivery(ctx context.Context, event, paymentID string) (bool, error)
	Forget(ctx context.Context, event, paymentID string) error
}

// WebhookService applies gateway payment outcomes and notifies the order owner.
type WebhookService struct {
	payments      payment.Repository
	orders        order.Repository
	notifications notification.Repository
	txManager     TransactionManager
	publisher     notification.Publisher
	guard         DeliveryGuard
	metrics       *observability.Metrics
	logger        zerolog.Logger
	clock         Clock
}

// NewWebhookService creates a new WebhookService. publisher and guard may be
// nil: without a publisher nothing is pushed to the delivery stream and
// without a guard every delivery is processed.
func NewWebhookService(
	payments payment.Repository,
	orders order.Repository,
	notifications notification.Repository,
	txManager TransactionManager,
	publisher notification.Publisher,
	guard DeliveryGuard,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *WebhookService {
	return &WebhookService{
		payments:      payments,
		orders:        orders,
		notifications: notifications,
		txManager:     txManager,
		publisher:     publisher,
		guard:         guard,
		metrics:       metrics,
		logger:        logger,
	}
}

// WithClock replaces the time source.
func (s *WebhookService) WithClock(c Clock) *WebhookService {
	s.clock = c
	return s
}

// HandleEvent updates the newest payment attempt carrying the gateway id,
// then writes a notification for the order owner in the same transaction.
// Earlier attempts for the order keep their status.
func (s *WebhookService) HandleEvent(ctx context.Context, req WebhookRequest) (*WebhookResponse, error) {
	event, ok := payment.ParseWebhookEvent(req.Event)
	if !ok {
		s.metrics.WebhookEvent("unhandled", "ignored")
		s.logger.Info().Str("event", req.Event).Msg("unhandled webhook event")
		return &WebhookResponse{Message: "Unhandled event type: " + req.Event}, nil
	}

	ctx, span := observability.StartSpan(ctx, "WebhookService.HandleEvent",
		attribute.String("webhook.event", string(event)),
		attribute.String("payment.gateway_id", req.Data.ID))
	defer span.End()

	n, err := s.apply(ctx, event, req.Data)
	if errors.Is(err, errDuplicateDelivery) {
		s.metrics.WebhookEvent(string(event), "duplicate")
		return &WebhookResponse{Handled: true, Duplicate: true, Message: duplicateDeliveryMessage}, nil
	}
	if err != nil {
		s.metrics.WebhookEvent(string(event), "failed")
		span.RecordError(err)
		return nil, err
	}

	s.publish(ctx, n)
	s.metrics.WebhookEvent(string(event), "processed")
	s.logger.Info().
		Str("event", string(event)).
		Str("gateway_id", req.Data.ID).
		Str("user_id", n.UserID.String()).
		Msg("webhook event processed")

	return &WebhookResponse{Handled: true, Message: event.ResultMessage()}, nil
}

func (s *WebhookService) apply(ctx context.Context, event payment.WebhookEvent, data payment.WebhookData) (*notification.Notification, error) {
	var (
		n      *notification.Notification
		marked string
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.payments.GetLatestByGatewayID(txCtx, data.ID)
		if err != nil {
			return domainErrors.NewStoreError("Error updating payment", err)
		}

		if s.guard != nil {
			first, err := s.guard.FirstDelivery(txCtx, string(event), p.ID.String())
			switch {
			case err != nil:
				s.logger.Warn().Err(err).Str("payment_id", p.ID.String()).Msg("delivery guard unavailable, processing anyway")
			case !first:
				return errDuplicateDelivery
			default:
				marked = p.ID.String()
			}
		}

		if err := s.payments.UpdateStatus(txCtx, p.ID, event.TargetStatus(), data.Raw); err != nil {
			return domainErrors.NewStoreError("Error updating payment", err)
		}

		o, err := s.orders.GetByID(txCtx, p.OrderID)
		if err != nil {
			return domainErrors.NewStoreError("Error fetching order", err)
		}

		n = notification.ForPaymentEvent(event, o, s.clock.now())
		if err := s.notifications.Create(txCtx, n); err != nil {
			return domainErrors.NewStoreError("Error creating notification", err)
		}
		return nil
	})
	if err != nil && marked != "" {
		if ferr := s.guard.Forget(context.WithoutCancel(ctx), string(event), marked); ferr != nil {
			s.logger.Warn().Err(ferr).Str("payment_id", marked).Msg("failed to clear delivery marker")
		}
	}
	return n, err
}

// publish pushes the committed notification to the delivery stream. Failures
// are logged only; the notification row is already durable.
func (s *WebhookService) publish(ctx context.Context, n *notification.Notification) {
	if s.publisher == nil || n == nil {
		return
	}
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("failed to publish notification")
	}
}
