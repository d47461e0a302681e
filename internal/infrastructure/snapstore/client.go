package snapstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewClient creates the Redis client backing the archive and logs whether
// the server answers. An unreachable server is not fatal: saves fail and
// are retried on the next interval.
func NewClient(ctx context.Context, log *zap.Logger, addr string, db int) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	log = log.Named("redis").With(zap.String("addr", addr), zap.Int("db", db))
	start := time.Now()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("connection failed", zap.Error(err), zap.Duration("ping_rtt", time.Since(start)))
	} else {
		log.Info("connection established", zap.Duration("ping_rtt", time.Since(start)))
	}
	return rdb
}
