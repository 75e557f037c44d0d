package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tudogo/functions/internal/domain/notification"
	"github.com/tudogo/functions/internal/infrastructure/observability"
)

type fakeStream struct {
	err   error
	calls int
}

func (f *fakeStream) PublishNotification(ctx context.Context, n *notification.Notification) error {
	f.calls++
	return f.err
}

func testNotification() *notification.Notification {
	return &notification.Notification{ID: uuid.New(), UserID: uuid.New(), Type: notification.TypePaymentApproved, SentAt: time.Now()}
}

func TestBreakerPublisher_Success(t *testing.T) {
	stream := &fakeStream{}
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	p := NewBreakerPublisher(stream, Settings{}, m, zerolog.Nop())

	require.NoError(t, p.Publish(context.Background(), testNotification()))

	assert.Equal(t, 1, stream.calls)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsPublished.WithLabelValues("ok")))
}

func TestBreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	stream := &fakeStream{err: errors.New("redis down")}
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	p := NewBreakerPublisher(stream, Settings{ConsecutiveFailures: 3, OpenTimeout: time.Minute}, m, zerolog.Nop())

	for i := 0; i < 3; i++ {
		assert.Error(t, p.Publish(context.Background(), testNotification()))
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	err := p.Publish(context.Background(), testNotification())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, stream.calls)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.NotificationsPublished.WithLabelValues("failed")))
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("notifications")))
}

func TestBreakerPublisher_NilMetrics(t *testing.T) {
	p := NewBreakerPublisher(&fakeStream{}, Settings{}, nil, zerolog.Nop())
	assert.NoError(t, p.Publish(context.Background(), testNotification()))
}
