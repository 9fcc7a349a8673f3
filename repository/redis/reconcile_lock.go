package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	lockPrefix    = "recurrence:lock:"
	lockTTL       = 30 * time.Second
	retryInterval = 100 * time.Millisecond
)

// releaseScript deletes the lock only if this owner still holds it.
var releaseScript = goRedis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// ReconcileLock serializes recurrence reconciliation across processes: the
// horizon-sweep cron and interactive edits must not interleave the
// template read with the generated-batch write.
type ReconcileLock struct {
	client *goRedis.Client
	logger *zap.Logger
}

// NewReconcileLock returns a Redis-backed recurrence lock.
func NewReconcileLock(client *goRedis.Client, logger *zap.Logger) *ReconcileLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileLock{client: client, logger: logger}
}

// Acquire blocks until the per-recurrence lock is held or ctx expires. The
// returned function releases the lock; the TTL bounds the damage of a
// crashed holder.
func (l *ReconcileLock) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	owner := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, owner, lockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, owner).Err(); err != nil && err != goRedis.Nil {
			l.logger.Warn("releasing recurrence lock failed",
				zap.String("key", key), zap.Error(err))
		}
	}
	return release, nil
}
