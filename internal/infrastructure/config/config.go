package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Webhook       WebhookConfig       `mapstructure:"webhook"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Receipt       ReceiptConfig       `mapstructure:"receipt"`
	QRCode        QRCodeConfig        `mapstructure:"qrcode"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Maintenance   MaintenanceConfig   `mapstructure:"maintenance"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	InstanceID    string              `mapstructure:"instance_id"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	SearchRateLimit int           `mapstructure:"search_rate_limit"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// AuthConfig holds the two access keys and the optional JWT secret. When all
// three are empty the API accepts every caller.
type AuthConfig struct {
	ServiceRoleKey string `mapstructure:"service_role_key"`
	AnonKey        string `mapstructure:"anon_key"`
	JWTSecret      string `mapstructure:"jwt_secret"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SSLMode         string        `mapstructure:"ssl_mode"`
}

type RedisConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	DB                int           `mapstructure:"db"`
	Password          string        `mapstructure:"password"`
	ConnectRetries    int           `mapstructure:"connect_retries"`
	ConnectRetryDelay time.Duration `mapstructure:"connect_retry_delay"`
}

type WebhookConfig struct {
	SigningSecret string        `mapstructure:"signing_secret"`
	Deduplicate   bool          `mapstructure:"deduplicate"`
	DedupeTTL     time.Duration `mapstructure:"dedupe_ttl"`
}

type PaymentConfig struct {
	PixKey            string        `mapstructure:"pix_key"`
	MerchantName      string        `mapstructure:"merchant_name"`
	MerchantCity      string        `mapstructure:"merchant_city"`
	IntentTTL         time.Duration `mapstructure:"intent_ttl"`
	EnforceOrderTotal bool          `mapstructure:"enforce_order_total"`
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`
}

type ReceiptConfig struct {
	TTL         time.Duration `mapstructure:"ttl"`
	VerifyToken bool          `mapstructure:"verify_token"`
}

type QRCodeConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Size    int    `mapstructure:"size"`
}

type CatalogConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

type MaintenanceConfig struct {
	UnpaidOrderAge        time.Duration `mapstructure:"unpaid_order_age"`
	NotificationRetention time.Duration `mapstructure:"notification_retention"`
	ExpireCartsInterval   time.Duration `mapstructure:"expire_carts_interval"`
	CancelOrdersInterval  time.Duration `mapstructure:"cancel_orders_interval"`
	CleanNotifsInterval   time.Duration `mapstructure:"clean_notifications_interval"`
	LockTTL               time.Duration `mapstructure:"lock_ttl"`
	RetryAttempts         uint          `mapstructure:"retry_attempts"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	NotifyBreakerFailures uint32        `mapstructure:"notify_breaker_failures"`
	NotifyBreakerTimeout  time.Duration `mapstructure:"notify_breaker_timeout"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	EnableMetrics  bool   `mapstructure:"enable_metrics"`
	EnableTracing  bool   `mapstructure:"enable_tracing"`
}

// envAliases binds the variable names used by the hosted functions runtime.
var envAliases = map[string]string{
	"database.url":           "DATABASE_URL",
	"auth.service_role_key":  "SERVICE_ROLE_KEY",
	"auth.anon_key":          "ANON_KEY",
	"webhook.signing_secret": "PAYMENT_WEBHOOK_SECRET",
}

func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("TUDOGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, alias := range envAliases {
		if err := v.BindEnv(key, "TUDOGO_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), alias); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", alias, err)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tudogo")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.write_timeout must be positive"))
	}
	if c.Database.URL == "" {
		if c.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.url or database.host is required"))
		}
		if c.Database.Port <= 0 {
			errs = append(errs, fmt.Errorf("database.port must be positive"))
		}
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, fmt.Errorf("redis.port must be positive"))
	}
	if c.Payment.PixKey == "" {
		errs = append(errs, fmt.Errorf("payment.pix_key is required"))
	}
	if c.Payment.IntentTTL <= 0 {
		errs = append(errs, fmt.Errorf("payment.intent_ttl must be positive"))
	}
	if c.Receipt.TTL <= 0 {
		errs = append(errs, fmt.Errorf("receipt.ttl must be positive"))
	}
	if c.QRCode.BaseURL == "" {
		errs = append(errs, fmt.Errorf("qrcode.base_url is required"))
	}
	if c.Catalog.DefaultPageSize <= 0 || c.Catalog.MaxPageSize < c.Catalog.DefaultPageSize {
		errs = append(errs, fmt.Errorf("catalog page sizes must satisfy 0 < default_page_size <= max_page_size"))
	}
	if c.Maintenance.UnpaidOrderAge <= 0 {
		errs = append(errs, fmt.Errorf("maintenance.unpaid_order_age must be positive"))
	}
	if c.Maintenance.NotificationRetention <= 0 {
		errs = append(errs, fmt.Errorf("maintenance.notification_retention must be positive"))
	}
	if c.Maintenance.LockTTL <= 0 {
		errs = append(errs, fmt.Errorf("maintenance.lock_ttl must be positive"))
	}
	if c.Webhook.Deduplicate && c.Webhook.DedupeTTL <= 0 {
		errs = append(errs, fmt.Errorf("webhook.dedupe_ttl must be positive when deduplication is enabled"))
	}

	// Production environment checks
	env := os.Getenv("ENV")
	if env == "production" || env == "prod" {
		if c.Auth.ServiceRoleKey == "" && c.Auth.JWTSecret == "" {
			errs = append(errs, fmt.Errorf("auth.service_role_key or auth.jwt_secret required in production"))
		}
		if c.Webhook.SigningSecret == "" {
			errs = append(errs, fmt.Errorf("webhook.signing_secret required in production"))
		}
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least 32 characters"))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.search_rate_limit", 120)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("server.cors.allow_credentials", false)

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tudogo")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "tudogo")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.ssl_mode", "disable")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.connect_retries", 5)
	v.SetDefault("redis.connect_retry_delay", "1s")

	// Auth defaults
	v.SetDefault("auth.service_role_key", "")
	v.SetDefault("auth.anon_key", "")
	v.SetDefault("auth.jwt_secret", "")

	// Webhook defaults
	v.SetDefault("webhook.signing_secret", "")
	v.SetDefault("webhook.deduplicate", false)
	v.SetDefault("webhook.dedupe_ttl", "24h")

	// Payment defaults
	v.SetDefault("payment.pix_key", "tudogo@example.com")
	v.SetDefault("payment.merchant_name", "TudoGo SuperApp")
	v.SetDefault("payment.merchant_city", "São Paulo")
	v.SetDefault("payment.intent_ttl", "30m")
	v.SetDefault("payment.enforce_order_total", false)
	v.SetDefault("payment.idempotency_ttl", "24h")

	// Receipt defaults
	v.SetDefault("receipt.ttl", "24h")
	v.SetDefault("receipt.verify_token", false)

	// QR code defaults
	v.SetDefault("qrcode.base_url", "https://api.qrserver.com/v1/create-qr-code/")
	v.SetDefault("qrcode.size", 200)

	// Catalog defaults
	v.SetDefault("catalog.default_page_size", 20)
	v.SetDefault("catalog.max_page_size", 100)

	// Maintenance defaults
	v.SetDefault("maintenance.unpaid_order_age", "24h")
	v.SetDefault("maintenance.notification_retention", "720h")
	v.SetDefault("maintenance.expire_carts_interval", "15m")
	v.SetDefault("maintenance.cancel_orders_interval", "1h")
	v.SetDefault("maintenance.clean_notifications_interval", "24h")
	v.SetDefault("maintenance.lock_ttl", "5m")
	v.SetDefault("maintenance.retry_attempts", 3)
	v.SetDefault("maintenance.retry_delay", "2s")
	v.SetDefault("maintenance.notify_breaker_failures", 5)
	v.SetDefault("maintenance.notify_breaker_timeout", "30s")

	// Observability defaults
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_tracing", false)

	// Instance ID
	v.SetDefault("instance_id", "tudogo-functions-1")
}

// DatabaseDSN returns the connection string, preferring an explicit URL.
func (c *DatabaseConfig) DatabaseDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// MigrationURL returns a postgres:// URL for golang-migrate.
func (c *DatabaseConfig) MigrationURL() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
