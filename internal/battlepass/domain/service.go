package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
)

type GrantRequest struct {
	UserID    snowflake.ID `json:"user_id"`
	Uses      int          `json:"uses"`
	ExpiresAt *time.Time   `json:"expires_at"`
}

// ConsumeOutcome reports what happened to one participant's ledger. OK is
// false only on infrastructure failure; "no credit available" is a
// successful outcome with Consumed=false.
type ConsumeOutcome struct {
	UserID          snowflake.ID  `json:"user_id"`
	OK              bool          `json:"ok"`
	Consumed        bool          `json:"consumed"`
	AlreadyRedeemed bool          `json:"already_redeemed,omitempty"`
	BattlepassID    *snowflake.ID `json:"battlepass_id,omitempty"`
}

type Service interface {
	Grant(ctx context.Context, act actor.Actor, req GrantRequest) (*Battlepass, error)
	Expire(ctx context.Context, act actor.Actor, id snowflake.ID) error
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Battlepass, error)
	ListWriteoffs(ctx context.Context, userID snowflake.ID) ([]Writeoff, error)

	// ConsumeForReport idempotently charges one credit for a report. Retries
	// and duplicate approval attempts are safe: the unique (user, report)
	// writeoff key turns a second charge into AlreadyRedeemed.
	ConsumeForReport(ctx context.Context, userID, reportID snowflake.ID, sessionID *snowflake.ID) (ConsumeOutcome, error)
}
