package service

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/infrastructure/observability"
	"github.com/tudogo/functions/internal/infrastructure/qrcode"
	"github.com/tudogo/functions/internal/testutil"
)

// --- Test Helpers ---

var testMerchant = payment.Merchant{
	PixKey: "pix@tudogo.app",
	Name:   "TudoGo SuperApp",
	City:   "São Paulo",
}

type fixture struct {
	clock   *testutil.Clock
	store   *testutil.MemoryStore
	qr      *qrcode.Renderer
	metrics *observability.Metrics
	logger  zerolog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testutil.NewClock(testutil.FixedTime)
	return &fixture{
		clock:   clock,
		store:   testutil.NewMemoryStore(clock),
		qr:      qrcode.NewRenderer("https://qr.test/", 200),
		metrics: observability.NewMetrics("test", prometheus.NewRegistry()),
		logger:  zerolog.Nop(),
	}
}
