package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tudogo/functions/internal/domain/notification"
	"github.com/tudogo/functions/internal/infrastructure/observability"
)

// StreamPublisher writes a notification to the delivery stream.
type StreamPublisher interface {
	PublishNotification(ctx context.Context, n *notification.Notification) error
}

// BreakerPublisher guards a StreamPublisher with a circuit breaker so a
// failing stream stops being called for a cool-down period.
type BreakerPublisher struct {
	stream  StreamPublisher
	breaker *gobreaker.CircuitBreaker[struct{}]
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// Settings tunes the breaker.
type Settings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

func NewBreakerPublisher(stream StreamPublisher, s Settings, metrics *observability.Metrics, logger zerolog.Logger) *BreakerPublisher {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}

	p := &BreakerPublisher{stream: stream, metrics: metrics, logger: logger}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "notifications",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
			p.metrics.BreakerState(name, float64(to))
		},
	})
	return p
}

// Publish sends n through the breaker.
func (p *BreakerPublisher) Publish(ctx context.Context, n *notification.Notification) error {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.stream.PublishNotification(ctx, n)
	})
	if err != nil {
		p.metrics.NotificationPublished("failed")
		return err
	}
	p.metrics.NotificationPublished("ok")
	return nil
}

// State exposes the breaker state for readiness reporting.
func (p *BreakerPublisher) State() gobreaker.State {
	return p.breaker.State()
}
