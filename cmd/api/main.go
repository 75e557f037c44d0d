package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tudogo/functions/internal/bootstrap"
	"github.com/tudogo/functions/internal/controller"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "tudogo-api", "tudogo")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	repos := app.Repositories()
	services := app.Services(repos)

	cfg := app.Config
	router := controller.NewRouter(controller.RouterDeps{
		DB:                 app.Pool,
		RedisClient:        app.Redis,
		PaymentService:     services.Payment,
		WebhookService:     services.Webhook,
		ReceiptService:     services.Receipt,
		CatalogService:     services.Catalog,
		MaintenanceService: services.Maintenance,
		IdempotencyStore:   repos.Idempotency,
		Metrics:            app.Metrics,
		ServerConfig:       cfg.Server,
		Auth:               cfg.Auth,
		WebhookSecret:      cfg.Webhook.SigningSecret,
		IdempotencyTTL:     cfg.Payment.IdempotencyTTL,
	})

	if cfg.Auth.ServiceRoleKey == "" && cfg.Auth.AnonKey == "" && cfg.Auth.JWTSecret == "" {
		app.Logger.Warn().Msg("No access keys configured, API accepts every caller")
	}
	if cfg.Webhook.SigningSecret == "" {
		app.Logger.Warn().Msg("Webhook signing secret not set, signatures are not checked")
	}

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
