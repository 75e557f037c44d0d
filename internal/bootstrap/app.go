package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tudogo/functions/internal/domain/payment"
	"github.com/tudogo/functions/internal/infrastructure/config"
	"github.com/tudogo/functions/internal/infrastructure/notify"
	"github.com/tudogo/functions/internal/infrastructure/observability"
	"github.com/tudogo/functions/internal/infrastructure/qrcode"
	infraRedis "github.com/tudogo/functions/internal/infrastructure/redis"
	"github.com/tudogo/functions/internal/repository/postgres"
	"github.com/tudogo/functions/internal/service"
)

type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics
}

func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout, serviceName, cfg.InstanceID)
	logger.Info().Msg("Starting")

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			go func() {
				<-ctx.Done()
				observability.Shutdown(context.Background(), tp)
			}()
			logger.Info().Msg("Tracing enabled")
		}
	}

	var metrics *observability.Metrics
	if cfg.Observability.EnableMetrics {
		metrics = observability.NewMetrics(metricsNamespace, nil)
		logger.Info().Msg("Metrics initialized")
	}

	pool, err := postgres.NewPool(ctx, &cfg.Database, serviceName)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("Connected to PostgreSQL")

	redisClient, err := infraRedis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("Connected to Redis")

	return &App{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: metrics,
	}, nil
}

func (a *App) Close() {
	a.Redis.Close()
	a.Pool.Close()
}

// Repositories are the Postgres adapters shared by every service.
type Repositories struct {
	Orders        *postgres.OrderRepository
	Payments      *postgres.PaymentRepository
	Notifications *postgres.NotificationRepository
	Catalog       *postgres.CatalogRepository
	Carts         *postgres.CartRepository
	Idempotency   *postgres.IdempotencyRepository
	Tx            *postgres.TxManager
}

func (a *App) Repositories() *Repositories {
	return &Repositories{
		Orders:        postgres.NewOrderRepository(a.Pool),
		Payments:      postgres.NewPaymentRepository(a.Pool),
		Notifications: postgres.NewNotificationRepository(a.Pool),
		Catalog:       postgres.NewCatalogRepository(a.Pool),
		Carts:         postgres.NewCartRepository(a.Pool),
		Idempotency:   postgres.NewIdempotencyRepository(a.Pool),
		Tx:            postgres.NewTxManager(a.Pool),
	}
}

// Services holds the application services built from config.
type Services struct {
	Payment     *service.PaymentService
	Webhook     *service.WebhookService
	Receipt     *service.ReceiptService
	Catalog     *service.CatalogService
	Maintenance *service.MaintenanceService
}

func (a *App) Services(repos *Repositories) *Services {
	cfg := a.Config
	qr := qrcode.NewRenderer(cfg.QRCode.BaseURL, cfg.QRCode.Size)

	publisher := notify.NewBreakerPublisher(
		infraRedis.NewStreamProducer(a.Redis),
		notify.Settings{
			ConsecutiveFailures: cfg.Maintenance.NotifyBreakerFailures,
			OpenTimeout:         cfg.Maintenance.NotifyBreakerTimeout,
		},
		a.Metrics,
		a.Logger,
	)

	// Left as a nil interface when disabled so the service skips the check.
	var guard service.DeliveryGuard
	if cfg.Webhook.Deduplicate {
		guard = infraRedis.NewDeliveryGuard(a.Redis, cfg.Webhook.DedupeTTL)
		a.Logger.Info().Dur("ttl", cfg.Webhook.DedupeTTL).Msg("Webhook delivery deduplication enabled")
	}

	return &Services{
		Payment: service.NewPaymentService(repos.Orders, repos.Payments, qr, service.PaymentSettings{
			Merchant: payment.Merchant{
				PixKey: cfg.Payment.PixKey,
				Name:   cfg.Payment.MerchantName,
				City:   cfg.Payment.MerchantCity,
			},
			IntentTTL:         cfg.Payment.IntentTTL,
			EnforceOrderTotal: cfg.Payment.EnforceOrderTotal,
		}, a.Metrics, a.Logger),
		Webhook: service.NewWebhookService(
			repos.Payments, repos.Orders, repos.Notifications, repos.Tx,
			publisher, guard, a.Metrics, a.Logger,
		),
		Receipt: service.NewReceiptService(repos.Orders, repos.Payments, qr, service.ReceiptSettings{
			TTL:         cfg.Receipt.TTL,
			VerifyToken: cfg.Receipt.VerifyToken,
		}, a.Metrics, a.Logger),
		Catalog: service.NewCatalogService(repos.Catalog, cfg.Catalog.DefaultPageSize, cfg.Catalog.MaxPageSize, a.Metrics, a.Logger),
		Maintenance: service.NewMaintenanceService(repos.Carts, repos.Orders, repos.Notifications, service.MaintenanceSettings{
			UnpaidOrderAge:        cfg.Maintenance.UnpaidOrderAge,
			NotificationRetention: cfg.Maintenance.NotificationRetention,
		}, a.Metrics, a.Logger),
	}
}
