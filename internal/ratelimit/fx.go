package ratelimit

import (
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/kredo/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewClient returns a redis client, or nil when no address is
// configured. Rate limiting degrades to allow-all without redis.
func NewClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, rate limiting disabled")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("rate.limit",
	fx.Provide(
		NewClient,
		NewTokenBucket,
	),
)
