package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/clock"
	"github.com/fablehold/fablehold/internal/config"
)

func newTestWindow(t *testing.T, maxActions int, window time.Duration) (*MemoryWindow, *clock.FakeClock) {
	t.Helper()
	holder := config.NewStaticModerationConfigHolder(config.ModerationConfig{
		MaxActions: maxActions,
		Window:     window,
	})
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewMemoryWindow(holder, clk), clk
}

func TestMemoryWindowCapsActions(t *testing.T) {
	limiter, _ := newTestWindow(t, 100, time.Hour)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	actorID := node.Generate()

	for i := 0; i < 100; i++ {
		allowed, err := limiter.CheckAndRecord(context.Background(), actorID)
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("action %d should be allowed", i+1)
		}
	}

	allowed, err := limiter.CheckAndRecord(context.Background(), actorID)
	if err != nil {
		t.Fatalf("check 101: %v", err)
	}
	if allowed {
		t.Fatal("101st action inside the window must be denied")
	}
}

func TestMemoryWindowIsPerActor(t *testing.T) {
	limiter, _ := newTestWindow(t, 1, time.Hour)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	first := node.Generate()
	second := node.Generate()

	if allowed, _ := limiter.CheckAndRecord(context.Background(), first); !allowed {
		t.Fatal("first actor's first action should pass")
	}
	if allowed, _ := limiter.CheckAndRecord(context.Background(), first); allowed {
		t.Fatal("first actor's second action should be denied")
	}
	if allowed, _ := limiter.CheckAndRecord(context.Background(), second); !allowed {
		t.Fatal("one actor's limit must not throttle another")
	}
}

func TestMemoryWindowSlides(t *testing.T) {
	limiter, clk := newTestWindow(t, 2, time.Hour)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	actorID := node.Generate()

	for i := 0; i < 2; i++ {
		if allowed, _ := limiter.CheckAndRecord(context.Background(), actorID); !allowed {
			t.Fatalf("action %d should be allowed", i+1)
		}
	}
	if allowed, _ := limiter.CheckAndRecord(context.Background(), actorID); allowed {
		t.Fatal("limit should be hit")
	}

	clk.Advance(time.Hour + time.Minute)
	if allowed, _ := limiter.CheckAndRecord(context.Background(), actorID); !allowed {
		t.Fatal("actions outside the window must no longer count")
	}
}

func TestMemoryWindowDeniedAttemptIsNotRecorded(t *testing.T) {
	limiter, clk := newTestWindow(t, 1, time.Hour)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	actorID := node.Generate()

	if allowed, _ := limiter.CheckAndRecord(context.Background(), actorID); !allowed {
		t.Fatal("first action should pass")
	}

	// Hammer the limiter while throttled; these attempts must not extend
	// the window.
	for i := 0; i < 5; i++ {
		clk.Advance(10 * time.Minute)
		if allowed, _ := limiter.CheckAndRecord(context.Background(), actorID); allowed {
			t.Fatalf("attempt %d should still be throttled", i+1)
		}
	}

	clk.Advance(11 * time.Minute)
	if allowed, _ := limiter.CheckAndRecord(context.Background(), actorID); !allowed {
		t.Fatal("window should have expired despite the denied attempts")
	}
}
