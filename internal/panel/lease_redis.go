package panel

import (
	"context"
	"time"

	"admin-actions/pkg/logger"
	"admin-actions/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLeaseTTL    = 2 * time.Minute
	defaultLeasePrefix = "admin-actions:inflight:"
)

// RedisLease implements Lease with SET NX and an owner-checked release.
type RedisLease struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisLease(rdb *redis.Client, ttl time.Duration) *RedisLease {
	if ttl <= 0 {
		ttl = defaultLeaseTTL
	}
	return &RedisLease{rdb: rdb, ttl: ttl, prefix: defaultLeasePrefix}
}

func (l *RedisLease) Acquire(ctx context.Context, key string) (func(), bool, error) {
	full := l.prefix + key
	owner := uuid.NewString()
	ok, err := utils.AcquireLease(ctx, l.rdb, full, owner, l.ttl)
	if err != nil || !ok {
		return nil, false, err
	}
	release := func() {
		if err := utils.ReleaseLease(context.WithoutCancel(ctx), l.rdb, full, owner); err != nil {
			logger.From(ctx).Warn("in-flight lease release failed", "key", full, "err", err)
		}
	}
	return release, true, nil
}
