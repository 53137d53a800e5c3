package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"

	"github.com/amoralabs/amora/internal/types"
)

// Limiter enforces the per-day message quota.
type Limiter interface {
	AllowMessage(ctx context.Context, userID string) (bool, error)
}

// RedisLimiter counts messages per user per UTC day with an atomic INCR, so
// concurrent sends cannot slip past the quota.
type RedisLimiter struct {
	rdb    *redis.Client
	limits *Service
}

// NewRedisLimiter returns a RedisLimiter.
func NewRedisLimiter(rdb *redis.Client, limits *Service) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limits: limits}
}

// AllowMessage reserves one message slot for today. The counter increments
// before the comparison; an over-limit increment still counts toward the day
// but denies the send.
func (l *RedisLimiter) AllowMessage(ctx context.Context, userID string) (bool, error) {
	limits, err := l.limits.GetLimits(ctx, userID)
	if err != nil {
		return false, err
	}
	if limits.MessagesPerDay == types.Unlimited {
		return true, nil
	}

	key := dailyKey(userID, time.Now().UTC())
	pipe := l.rdb.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, goerr.Wrap(err, "failed to bump daily message counter", goerr.V("user_id", userID))
	}
	return count.Val() <= int64(limits.MessagesPerDay), nil
}

func dailyKey(userID string, day time.Time) string {
	return fmt.Sprintf("msgcount:%s:%s", userID, day.Format("2006-01-02"))
}
