package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tudogo/functions/internal/bootstrap"
	"github.com/tudogo/functions/internal/domain/maintenance"
	infraRedis "github.com/tudogo/functions/internal/infrastructure/redis"
	"github.com/tudogo/functions/internal/service"
	"github.com/tudogo/functions/internal/worker"
	"github.com/tudogo/functions/pkg/retry"
)

const idempotencyCleanupInterval = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "tudogo-worker", "tudogo_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	repos := app.Repositories()
	services := app.Services(repos)

	mcfg := app.Config.Maintenance
	intervals := map[maintenance.JobType]time.Duration{
		maintenance.JobExpireCarts:           mcfg.ExpireCartsInterval,
		maintenance.JobCancelUnpaidOrders:    mcfg.CancelOrdersInterval,
		maintenance.JobCleanOldNotifications: mcfg.CleanNotifsInterval,
	}

	var tasks []worker.Task
	for _, job := range maintenance.AllJobs {
		tasks = append(tasks, worker.Task{
			Name:     string(job),
			Interval: intervals[job],
			Fn:       jobFn(services.Maintenance, job),
		})
	}
	tasks = append(tasks, worker.Task{
		Name:     "idempotency_cleanup",
		Interval: idempotencyCleanupInterval,
		Fn:       repos.Idempotency.Cleanup,
	})

	scheduler := worker.NewScheduler(
		taskLocker{infraRedis.NewLocker(app.Redis)},
		mcfg.LockTTL,
		retry.Config{
			MaxAttempts:  mcfg.RetryAttempts,
			InitialDelay: mcfg.RetryDelay,
			MaxDelay:     30 * time.Second,
		},
		app.Logger,
	)

	app.Logger.Info().Int("tasks", len(tasks)).Msg("Worker started")

	if err := scheduler.Run(ctx, tasks); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}

func jobFn(svc *service.MaintenanceService, job maintenance.JobType) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		res, err := svc.Run(ctx, job)
		if err != nil {
			return 0, err
		}
		return res.Affected, nil
	}
}

// taskLocker hands the scheduler Redis locks as leases.
type taskLocker struct {
	locker *infraRedis.Locker
}

func (l taskLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (worker.Lease, bool, error) {
	lock, ok, err := l.locker.TryLock(ctx, key, ttl)
	if err != nil || !ok {
		return nil, ok, err
	}
	return lock, true, nil
}
