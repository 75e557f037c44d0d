package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tudogo/functions/internal/infrastructure/config"
	"github.com/tudogo/functions/internal/infrastructure/observability"
	customMW "github.com/tudogo/functions/internal/middleware"
	"github.com/tudogo/functions/internal/service"
)

type RouterDeps struct {
	DB                 Pinger
	RedisClient        redis.Cmdable
	PaymentService     *service.PaymentService
	WebhookService     *service.WebhookService
	ReceiptService     *service.ReceiptService
	CatalogService     *service.CatalogService
	MaintenanceService *service.MaintenanceService
	IdempotencyStore   customMW.IdempotencyStore
	Metrics            *observability.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer

	ServerConfig   config.ServerConfig
	Auth           config.AuthConfig
	WebhookSecret  string
	IdempotencyTTL time.Duration
}

// allowedHeaders are the request headers browser clients of the functions send.
var allowedHeaders = []string{
	"authorization", "x-client-info", "apikey", "content-type",
	"x-webhook-signature", "idempotency-key",
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	timeout := deps.ServerConfig.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := deps.ServerConfig.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   allowedHeaders,
		AllowCredentials: deps.ServerConfig.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.SecurityHeaders())
	r.Use(customMW.OptionsNoop())
	r.Use(customMW.Metrics(deps.Metrics))

	healthH := NewHealthController(deps.DB, deps.RedisClient)
	paymentH := NewPaymentController(deps.PaymentService, deps.WebhookService)
	receiptH := NewReceiptController(deps.ReceiptService)
	catalogH := NewCatalogController(deps.CatalogService)
	jobH := NewJobController(deps.MaintenanceService)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	auth := customMW.AuthSettings{
		ServiceRoleKey: deps.Auth.ServiceRoleKey,
		AnonKey:        deps.Auth.AnonKey,
		JWTSecret:      deps.Auth.JWTSecret,
	}
	serviceOnly := customMW.RequireRole(auth, customMW.RoleServiceRole)
	anyClient := customMW.RequireRole(auth, customMW.RoleServiceRole, customMW.RoleAuthenticated, customMW.RoleAnon)

	r.Route("/api/v1", func(r chi.Router) {
		// Payments
		intent := r.With(anyClient)
		if deps.IdempotencyStore != nil {
			intent = intent.With(customMW.Idempotency(deps.IdempotencyStore, deps.IdempotencyTTL))
		}
		intent.Post("/payments/intents", paymentH.CreateIntent)
		r.With(customMW.WebhookSignature(deps.WebhookSecret)).Post("/payments/webhook", paymentH.Webhook)

		// Receipts
		r.With(anyClient).Post("/receipts", receiptH.Issue)
		r.With(anyClient).Post("/receipts/verify", receiptH.Verify)

		// Catalog
		r.Group(func(r chi.Router) {
			r.Use(anyClient)
			r.Use(customMW.RateLimit(deps.ServerConfig.SearchRateLimit))
			r.Get("/catalog/search", catalogH.Search)
			r.Post("/catalog/search", catalogH.Search)
		})

		// Maintenance
		r.With(serviceOnly).Post("/jobs", jobH.Run)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "not_found"})
	})

	return r
}
