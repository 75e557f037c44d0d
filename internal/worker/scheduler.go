package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/pkg/retry"
)

// Lease is a held lock that can be kept alive and released.
type Lease interface {
	Extend(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}

// Locker grants exclusive ownership of a key for a bounded time. ok is false
// when another owner holds the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
}

// Task is a periodic unit of work. Fn reports how many rows it touched.
type Task struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context) (int64, error)
}

// Scheduler runs tasks on their intervals. Each run holds a lock named after
// the task, so only one instance executes a given task at a time. The lock is
// extended every half TTL while the task runs.
type Scheduler struct {
	locker  Locker
	lockTTL time.Duration
	retry   retry.Config
	logger  zerolog.Logger
}

func NewScheduler(locker Locker, lockTTL time.Duration, retryCfg retry.Config, logger zerolog.Logger) *Scheduler {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Scheduler{locker: locker, lockTTL: lockTTL, retry: retryCfg, logger: logger}
}

// Run starts one loop per task and blocks until ctx is cancelled. Tasks with
// a non-positive interval are not scheduled.
func (s *Scheduler) Run(ctx context.Context, tasks []Task) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		if task.Interval <= 0 {
			s.logger.Info().Str("task", task.Name).Msg("Task disabled")
			continue
		}
		g.Go(func() error {
			s.loop(gCtx, task)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.logger.Info().Str("task", task.Name).Dur("interval", task.Interval).Msg("Task scheduled")
	for {
		if err := s.RunOnce(ctx, task); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Str("task", task.Name).Msg("Task failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce executes task under its lock, retrying store failures. It returns
// nil without running when another owner holds the lock.
func (s *Scheduler) RunOnce(ctx context.Context, task Task) error {
	lease, ok, err := s.locker.TryLock(ctx, "tasks:"+task.Name, s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		s.logger.Debug().Str("task", task.Name).Msg("Lock held elsewhere, skipping")
		return nil
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn().Err(err).Str("task", task.Name).Msg("Failed to release lock")
		}
	}()
	stop := s.keepAlive(ctx, task.Name, lease)
	defer stop()

	cfg := s.retry
	cfg.OnRetry = func(n uint, err error) {
		s.logger.Warn().Err(err).Str("task", task.Name).Uint("attempt", n+1).Msg("Task attempt failed, retrying")
	}

	affected, err := retry.DoWithResult(ctx, cfg, func() (int64, error) {
		affected, err := task.Fn(ctx)
		if err != nil && !retryable(err) {
			return 0, retry.Permanent(err)
		}
		return affected, err
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("task", task.Name).Int64("affected", affected).Msg("Task completed")
	return nil
}

// keepAlive extends lease until stop is called. stop waits for the extender
// to exit.
func (s *Scheduler) keepAlive(ctx context.Context, name string, lease Lease) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.lockTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lease.Extend(ctx, s.lockTTL); err != nil && ctx.Err() == nil {
					s.logger.Warn().Err(err).Str("task", name).Msg("Failed to extend lock")
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// retryable reports whether err came from the store rather than the request.
func retryable(err error) bool {
	var ve *domainErrors.ValidationError
	var de *domainErrors.DomainError
	return !errors.As(err, &ve) && !errors.As(err, &de)
}
