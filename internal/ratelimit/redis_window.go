package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/config"
	redis "github.com/redis/go-redis/v9"
)

// Sorted-set rolling window: prune entries older than the window, count what
// remains, and record the action only while under the limit.
const rollingWindowScript = `
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

redis.call("ZREMRANGEBYSCORE", KEYS[1], 0, now - window)

local count = redis.call("ZCARD", KEYS[1])
if count >= limit then
  return {0, count}
end

redis.call("ZADD", KEYS[1], now, now .. "-" .. count)
redis.call("PEXPIRE", KEYS[1], window)
return {1, count + 1}
`

type RedisWindow struct {
	client *redis.Client
	script *redis.Script
	holder *config.ModerationConfigHolder
}

func NewRedisWindow(client *redis.Client, holder *config.ModerationConfigHolder) *RedisWindow {
	if client == nil {
		return nil
	}
	return &RedisWindow{
		client: client,
		script: redis.NewScript(rollingWindowScript),
		holder: holder,
	}
}

func (w *RedisWindow) CheckAndRecord(ctx context.Context, actorID snowflake.ID) (bool, error) {
	if w == nil || w.client == nil {
		return false, errors.New("rate limiter not configured")
	}
	if actorID == 0 {
		return false, errors.New("rate limiter actor is empty")
	}

	policy := w.holder.Current()
	key := fmt.Sprintf("%s:actor:%s", policy.RedisKeyspace, actorID.String())

	res, err := w.script.Run(
		ctx,
		w.client,
		[]string{key},
		int64(policy.Window/time.Millisecond),
		policy.MaxActions,
	).Slice()
	if err != nil {
		return false, err
	}
	if len(res) < 1 {
		return false, errors.New("invalid rate limit script response")
	}

	allowed, _ := res[0].(int64)
	return allowed == 1, nil
}
