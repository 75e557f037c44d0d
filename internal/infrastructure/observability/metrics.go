package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Payment metrics
	PaymentIntentsTotal *prometheus.CounterVec
	WebhookEventsTotal  *prometheus.CounterVec

	// Receipt metrics
	ReceiptsIssuedTotal  prometheus.Counter
	ReceiptVerifications *prometheus.CounterVec

	// Catalog metrics
	SearchRequestsTotal *prometheus.CounterVec
	SearchDuration      prometheus.Histogram

	// Maintenance metrics
	MaintenanceRunsTotal *prometheus.CounterVec
	MaintenanceAffected  *prometheus.CounterVec

	// Notification metrics
	NotificationsPublished *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		PaymentIntentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_intents_total",
				Help:      "Total number of payment intents by outcome",
			},
			[]string{"outcome"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Total number of gateway webhook events by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		ReceiptsIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "receipts_issued_total",
				Help:      "Total number of receipts issued",
			},
		),
		ReceiptVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "receipt_verifications_total",
				Help:      "Total number of receipt verifications by result",
			},
			[]string{"result"},
		),
		SearchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_search_requests_total",
				Help:      "Total number of catalog searches by outcome",
			},
			[]string{"outcome"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "catalog_search_duration_seconds",
				Help:      "Catalog search store round-trip duration in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		MaintenanceRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Total number of maintenance job runs by job and status",
			},
			[]string{"job", "status"},
		),
		MaintenanceAffected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_rows_affected_total",
				Help:      "Rows changed by maintenance jobs",
			},
			[]string{"job"},
		),
		NotificationsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Notifications pushed to the outbound stream by result",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.PaymentIntentsTotal,
		m.WebhookEventsTotal,
		m.ReceiptsIssuedTotal,
		m.ReceiptVerifications,
		m.SearchRequestsTotal,
		m.SearchDuration,
		m.MaintenanceRunsTotal,
		m.MaintenanceAffected,
		m.NotificationsPublished,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
	)

	return m
}

// The helpers below are safe on a nil *Metrics so services can run without
// a registry in tests.

func (m *Metrics) PaymentIntent(outcome string) {
	if m == nil {
		return
	}
	m.PaymentIntentsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WebhookEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) ReceiptIssued() {
	if m == nil {
		return
	}
	m.ReceiptsIssuedTotal.Inc()
}

func (m *Metrics) ReceiptVerified(result string) {
	if m == nil {
		return
	}
	m.ReceiptVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Search(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.SearchRequestsTotal.WithLabelValues(outcome).Inc()
	m.SearchDuration.Observe(seconds)
}

func (m *Metrics) MaintenanceRun(job, status string, affected int64) {
	if m == nil {
		return
	}
	m.MaintenanceRunsTotal.WithLabelValues(job, status).Inc()
	if affected > 0 {
		m.MaintenanceAffected.WithLabelValues(job).Add(float64(affected))
	}
}

func (m *Metrics) NotificationPublished(result string) {
	if m == nil {
		return
	}
	m.NotificationsPublished.WithLabelValues(result).Inc()
}

func (m *Metrics) BreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}
