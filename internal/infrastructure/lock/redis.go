package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "qbd:realm-lock:"

// ErrNotObtained is returned when the realm stayed locked through every retry
var ErrNotObtained = errors.New("realm is locked by another request")

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisLocker holds a short-lived Redis lock per realm so that replicas
// behind a load balancer never dispatch for the same realm concurrently.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
	logger *zap.Logger
}

// NewRedisLocker creates a locker on client. The TTL bounds how long a
// crashed holder can block its realm.
func NewRedisLocker(client redis.UniversalClient, cfg config.LockConfig, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    cfg.TTL,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(cfg.RetryDelay), cfg.RetryCount),
		logger: logger,
	}
}

// Lock obtains the realm's lock, retrying with linear backoff
func (l *RedisLocker) Lock(ctx context.Context, realmID uuid.UUID) (func(), error) {
	lk, err := l.client.Obtain(ctx, keyPrefix+realmID.String(), l.ttl, &redislock.Options{
		RetryStrategy: l.retry,
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain realm lock: %w", err)
	}

	return func() {
		// The request context may already be cancelled; release regardless.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lk.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Failed to release realm lock",
				zap.String("realm_id", realmID.String()),
				zap.Error(err),
			)
		}
	}, nil
}
