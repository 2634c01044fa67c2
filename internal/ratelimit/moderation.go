// Package ratelimit caps how many moderation actions an account may perform
// inside one rolling window.
package ratelimit

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// ModerationLimiter gates moderation actions per actor. CheckAndRecord
// returns false without recording when the actor is over the limit; callers
// must check before mutating any state.
type ModerationLimiter interface {
	CheckAndRecord(ctx context.Context, actorID snowflake.ID) (bool, error)
}
