package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/domain/maintenance"
	"github.com/tudogo/functions/internal/domain/notification"
	"github.com/tudogo/functions/internal/domain/order"
	"github.com/tudogo/functions/internal/infrastructure/observability"
)

// MaintenanceSettings sets the age thresholds for the cleanup jobs.
type MaintenanceSettings struct {
	UnpaidOrderAge        time.Duration
	NotificationRetention time.Duration
}

// MaintenanceService runs the batch cleanup jobs.
type MaintenanceService struct {
	carts         maintenance.CartStore
	orders        order.Repository
	notifications notification.Repository
	settings      MaintenanceSettings
	metrics       *observability.Metrics
	logger        zerolog.Logger
	clock         Clock
}

func NewMaintenanceService(
	carts maintenance.CartStore,
	orders order.Repository,
	notifications notification.Repository,
	settings MaintenanceSettings,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *MaintenanceService {
	if settings.UnpaidOrderAge <= 0 {
		settings.UnpaidOrderAge = 24 * time.Hour
	}
	if settings.NotificationRetention <= 0 {
		settings.NotificationRetention = 30 * 24 * time.Hour
	}
	return &MaintenanceService{
		carts:         carts,
		orders:        orders,
		notifications: notifications,
		settings:      settings,
		metrics:       metrics,
		logger:        logger,
	}
}

// WithClock replaces the time source.
func (s *MaintenanceService) WithClock(c Clock) *MaintenanceService {
	s.clock = c
	return s
}

// RunJob parses rawJob and runs it.
func (s *MaintenanceService) RunJob(ctx context.Context, rawJob string) (*RunJobResponse, error) {
	job, err := maintenance.ParseJobType(rawJob)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, job)
}

// Run executes one job and reports how many rows it touched.
func (s *MaintenanceService) Run(ctx context.Context, job maintenance.JobType) (*RunJobResponse, error) {
	ctx, span := observability.StartSpan(ctx, "MaintenanceService.Run",
		attribute.String("maintenance.job", string(job)))
	defer span.End()

	now := s.clock.now()

	var (
		affected int64
		err      error
	)
	switch job {
	case maintenance.JobExpireCarts:
		affected, err = s.carts.ExpireInactive(ctx)
	case maintenance.JobCancelUnpaidOrders:
		affected, err = s.orders.CancelUnpaid(ctx, now.Add(-s.settings.UnpaidOrderAge))
	case maintenance.JobCleanOldNotifications:
		affected, err = s.notifications.DeleteReadBefore(ctx, now.Add(-s.settings.NotificationRetention))
	default:
		return nil, domainErrors.NewDomainError("unknown_job_type", "Unknown job type: "+string(job), domainErrors.ErrUnknownJobType)
	}

	if err != nil {
		s.metrics.MaintenanceRun(string(job), "failed", 0)
		span.RecordError(err)
		s.logger.Error().Err(err).Str("job", string(job)).Msg("maintenance job failed")
		return nil, domainErrors.NewStoreError(job.FailureMessage(), err)
	}

	s.metrics.MaintenanceRun(string(job), "succeeded", affected)
	s.logger.Info().Str("job", string(job)).Int64("affected", affected).Msg("maintenance job completed")

	return &RunJobResponse{
		Job:      job,
		Message:  job.SuccessMessage(),
		Affected: affected,
		RanAt:    now,
	}, nil
}
