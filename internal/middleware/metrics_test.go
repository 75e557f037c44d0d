package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tudogo/functions/internal/infrastructure/observability"
)

func newMetricsRouter(m *observability.Metrics, status int) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Post("/api/v1/payments/intents", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	r.Get("/api/v1/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func TestMetrics_RecordsRequest(t *testing.T) {
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	r := newMetricsRouter(metrics, http.StatusOK)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/payments/intents", "200")))
	assert.Equal(t, 1, promtest.CollectAndCount(metrics.HTTPRequestDuration))
}

func TestMetrics_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		label      string
	}{
		{"ok", http.StatusOK, "200"},
		{"bad request", http.StatusBadRequest, "400"},
		{"unauthorized", http.StatusUnauthorized, "401"},
		{"not found", http.StatusNotFound, "404"},
		{"server error", http.StatusInternalServerError, "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetrics("test", prometheus.NewRegistry())
			r := newMetricsRouter(metrics, tt.statusCode)

			r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/payments/intents", nil))

			assert.Equal(t, 1.0, promtest.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/payments/intents", tt.label)))
		})
	}
}

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	r := newMetricsRouter(metrics, http.StatusOK)

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+id, nil))
	}

	assert.Equal(t, 3.0, promtest.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/orders/{id}", "200")))
}

func TestMetrics_ImplicitStatusOK(t *testing.T) {
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	handler := Metrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")))
}

func TestMetrics_NilMetricsPassThrough(t *testing.T) {
	handler := Metrics(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
}
