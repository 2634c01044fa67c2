package ratelimit

import (
	"strings"

	"github.com/fablehold/fablehold/internal/clock"
	"github.com/fablehold/fablehold/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewModerationLimiter),
)

func NewModerationLimiter(cfg config.Config, holder *config.ModerationConfigHolder, clk clock.Clock, log *zap.Logger) ModerationLimiter {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		log.Named("ratelimit").Info("redis not configured, using in-process moderation window")
		return NewMemoryWindow(holder, clk)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	return NewRedisWindow(client, holder)
}
