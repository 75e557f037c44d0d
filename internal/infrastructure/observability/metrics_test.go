package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("tudogo", reg)

	m.PaymentIntent("created")
	m.WebhookEvent("payment.approved", "processed")
	m.ReceiptIssued()
	m.ReceiptVerified("valid")
	m.Search("ok", 0.02)
	m.MaintenanceRun("cancel_unpaid_orders", "success", 3)
	m.NotificationPublished("ok")
	m.BreakerState("notifications", 0)

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.PaymentIntentsTotal.WithLabelValues("created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WebhookEventsTotal.WithLabelValues("payment.approved", "processed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReceiptsIssuedTotal))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.MaintenanceAffected.WithLabelValues("cancel_unpaid_orders")))
}

func TestMetrics_ZeroAffectedNotCounted(t *testing.T) {
	m := NewMetrics("tudogo", prometheus.NewRegistry())

	m.MaintenanceRun("expire_carts", "success", 0)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.MaintenanceRunsTotal.WithLabelValues("expire_carts", "success")))
	assert.Equal(t, 0, testutil.CollectAndCount(m.MaintenanceAffected))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.PaymentIntent("created")
		m.WebhookEvent("payment.refused", "failed")
		m.ReceiptIssued()
		m.ReceiptVerified("expired")
		m.Search("error", 1)
		m.MaintenanceRun("expire_carts", "failure", 0)
		m.NotificationPublished("dropped")
		m.BreakerState("notifications", 2)
	})
}
