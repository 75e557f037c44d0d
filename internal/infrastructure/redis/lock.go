package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// Lua script for safe lock release (only owner can release)
	releaseLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	// Lua script for lock extension
	extendLockScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// ErrLockNotHeld is returned when extending or releasing a lock owned by someone else.
var ErrLockNotHeld = errors.New("lock not held or expired")

// DistributedLock is a single-owner Redis lock
type DistributedLock struct {
	client   redis.Cmdable
	key      string
	value    string
	ttl      time.Duration
	acquired bool
}

// NewDistributedLock creates a new distributed lock
func NewDistributedLock(client redis.Cmdable, key string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		client: client,
		key:    fmt.Sprintf("lock:%s", key),
		value:  uuid.New().String(),
		ttl:    ttl,
	}
}

// Acquire attempts to acquire the lock without waiting
func (l *DistributedLock) Acquire(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	l.acquired = success
	return success, nil
}

// Extend resets the lock TTL
func (l *DistributedLock) Extend(ctx context.Context, ttl time.Duration) error {
	if !l.acquired {
		return ErrLockNotHeld
	}

	result, err := extendLockScript.Run(ctx, l.client, []string{l.key}, l.value, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("failed to extend lock: %w", err)
	}
	if val, ok := result.(int64); !ok || val == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Release releases the lock
func (l *DistributedLock) Release(ctx context.Context) error {
	if !l.acquired {
		return nil
	}

	result, err := releaseLockScript.Run(ctx, l.client, []string{l.key}, l.value).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.acquired = false

	if val, ok := result.(int64); !ok || val == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Locker hands out DistributedLocks for named jobs.
type Locker struct {
	client redis.Cmdable
}

func NewLocker(client redis.Cmdable) *Locker {
	return &Locker{client: client}
}

// TryLock acquires key for ttl. ok is false when another owner holds it.
func (k *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, bool, error) {
	lock := NewDistributedLock(k.client, key, ttl)
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	return lock, true, nil
}

// DeliveryGuard records webhook deliveries so a repeated delivery inside the
// TTL window can be recognised.
type DeliveryGuard struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewDeliveryGuard(client redis.Cmdable, ttl time.Duration) *DeliveryGuard {
	return &DeliveryGuard{client: client, ttl: ttl}
}

// FirstDelivery marks (event, paymentID) as seen and reports whether it was new.
func (g *DeliveryGuard) FirstDelivery(ctx context.Context, event, paymentID string) (bool, error) {
	key := deliveryKey(event, paymentID)
	ok, err := g.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record delivery: %w", err)
	}
	return ok, nil
}

// Forget removes the delivery marker so the gateway's retry is processed again.
func (g *DeliveryGuard) Forget(ctx context.Context, event, paymentID string) error {
	if err := g.client.Del(ctx, deliveryKey(event, paymentID)).Err(); err != nil {
		return fmt.Errorf("failed to clear delivery: %w", err)
	}
	return nil
}

func deliveryKey(event, paymentID string) string {
	return fmt.Sprintf("webhook:delivery:%s:%s", event, paymentID)
}
