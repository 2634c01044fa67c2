package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/clock"
	"github.com/fablehold/fablehold/internal/config"
)

// MemoryWindow is the single-process fallback used when Redis is not
// configured. It keeps one timestamp slice per actor and prunes on access.
type MemoryWindow struct {
	mu      sync.Mutex
	actions map[snowflake.ID][]time.Time
	holder  *config.ModerationConfigHolder
	clock   clock.Clock
}

func NewMemoryWindow(holder *config.ModerationConfigHolder, clk clock.Clock) *MemoryWindow {
	return &MemoryWindow{
		actions: make(map[snowflake.ID][]time.Time),
		holder:  holder,
		clock:   clk,
	}
}

func (w *MemoryWindow) CheckAndRecord(ctx context.Context, actorID snowflake.ID) (bool, error) {
	if actorID == 0 {
		return false, nil
	}

	policy := w.holder.Current()
	now := w.clock.Now()
	cutoff := now.Add(-policy.Window)

	w.mu.Lock()
	defer w.mu.Unlock()

	recent := w.actions[actorID][:0]
	for _, t := range w.actions[actorID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= policy.MaxActions {
		w.actions[actorID] = recent
		return false, nil
	}

	w.actions[actorID] = append(recent, now)
	return true, nil
}
