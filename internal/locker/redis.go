package locker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LockStore is the subset of redisclient.Client the Redis locker needs.
type LockStore interface {
	AcquireLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
}

// Redis is a Locker shared by every instance pointing at the same Redis.
type Redis struct {
	store        LockStore
	ttl          time.Duration
	wait         time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewRedis(store LockStore, ttl, wait time.Duration) *Redis {
	return &Redis{
		store:        store,
		ttl:          ttl,
		wait:         wait,
		pollInterval: 25 * time.Millisecond,
		logger:       util.GetLogger(),
	}
}

func (r *Redis) Lock(ctx context.Context, keys []string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, r.wait)
	defer cancel()

	token := uuid.NewString()
	return lockAll(ctx, keys, func(ctx context.Context, key string) (func(), error) {
		return r.lockOne(ctx, key, token)
	})
}

func (r *Redis) lockOne(ctx context.Context, key, token string) (func(), error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.store.AcquireLock(ctx, key, token, r.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			return func() {
				// the request context may already be cancelled
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if _, err := r.store.ReleaseLock(releaseCtx, key, token); err != nil {
					r.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
