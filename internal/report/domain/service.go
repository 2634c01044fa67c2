package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	"github.com/fablehold/fablehold/pkg/db/pagination"
)

type SubmitRequest struct {
	GroupID        snowflake.ID   `json:"group_id"`
	Description    string         `json:"description"`
	Highlights     *string        `json:"highlights,omitempty"`
	SessionID      *snowflake.ID  `json:"session_id,omitempty"`
	ParticipantIDs []snowflake.ID `json:"participant_ids"`
}

type UpdateRequest struct {
	ID          snowflake.ID
	Description *string `json:"description"`
	Highlights  *string `json:"highlights"`
}

type ModerateRequest struct {
	ID              snowflake.ID
	Action          ModerationAction `json:"action"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
}

type AttachPlanRequest struct {
	ReportID              snowflake.ID
	ContinuedFromReportID *snowflake.ID `json:"continued_from_report_id,omitempty"`
	PlanText              string        `json:"plan_text"`
	MonsterID             snowflake.ID  `json:"monster_id"`
	LocationTextID        snowflake.ID  `json:"location_text_id"`
	MainEventTextID       snowflake.ID  `json:"main_event_text_id"`
	SideEventTextID       snowflake.ID  `json:"side_event_text_id"`
}

type ListRequest struct {
	GroupID   snowflake.ID
	MasterID  snowflake.ID
	Status    ReportStatus
	PageToken string
	PageSize  int
}

// ModerateResult reports the committed status plus, on approval, what the
// ledger did for each participant. Partial ledger failures live here instead
// of in the error return.
type ModerateResult struct {
	Report         *Report                           `json:"report"`
	PlayerOutcomes []battlepassdomain.ConsumeOutcome `json:"player_outcomes,omitempty"`
}

type Service interface {
	Submit(ctx context.Context, act actor.Actor, req SubmitRequest) (*Report, error)
	// Update patches a report owned by the actor while it is PENDING or
	// REJECTED. Patching a REJECTED report resubmits it: status returns to
	// PENDING and the rejection reason is cleared.
	Update(ctx context.Context, act actor.Actor, req UpdateRequest) (*Report, error)
	// Moderate approves or rejects a PENDING report. The status transition
	// commits first; ledger consumption and the notification fanout run after
	// it and never undo it.
	Moderate(ctx context.Context, act actor.Actor, req ModerateRequest) (*ModerateResult, error)
	// Cancel retires an APPROVED report. Consumed credits are not restored
	// and claimed elements stay locked; both need manual administrative
	// follow-up.
	Cancel(ctx context.Context, act actor.Actor, id snowflake.ID) (*Report, error)
	Get(ctx context.Context, id snowflake.ID) (*Report, error)
	List(ctx context.Context, req ListRequest) ([]Report, *pagination.PageInfo, error)

	// AttachPlan attaches the next-session content grid to an APPROVED report
	// owned by the actor, claiming every referenced element. Losing any claim
	// rolls back the ones already taken and fails with ErrElementClaimLost.
	AttachPlan(ctx context.Context, act actor.Actor, req AttachPlanRequest) (*NextPlan, error)
	GetPlan(ctx context.Context, reportID snowflake.ID) (*NextPlan, error)
}
