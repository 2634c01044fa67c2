package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ReportStatus string

const (
	StatusPending   ReportStatus = "PENDING"
	StatusApproved  ReportStatus = "APPROVED"
	StatusRejected  ReportStatus = "REJECTED"
	StatusCancelled ReportStatus = "CANCELLED"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// ModerationAction is the verb a moderator applies to a PENDING report.
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
)

// Report is a game master's recap of one play session. Status is the single
// source of truth for the approval pipeline; every downstream side effect
// hangs off a committed status transition.
type Report struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	GroupID         snowflake.ID      `gorm:"index" json:"group_id"`
	MasterID        snowflake.ID      `gorm:"index" json:"master_id"`
	Description     string            `json:"description"`
	Highlights      *string           `json:"highlights,omitempty"`
	SessionID       *snowflake.ID     `json:"session_id,omitempty"`
	Status          ReportStatus      `gorm:"index;default:PENDING" json:"status"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`

	Participants []ReportParticipant `gorm:"foreignKey:ReportID" json:"participants,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

// ParticipantIDs flattens the join rows into the id set callers reason about.
func (r *Report) ParticipantIDs() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(r.Participants))
	for _, p := range r.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// ReportParticipant joins a report to one participating player.
type ReportParticipant struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	ReportID snowflake.ID `gorm:"uniqueIndex:ux_report_participants,priority:1" json:"report_id"`
	UserID   snowflake.ID `gorm:"uniqueIndex:ux_report_participants,priority:2" json:"user_id"`
}

func (ReportParticipant) TableName() string {
	return "report_participants"
}

// NextPlan is the proposed content grid for the session that follows an
// approved report. At most one plan exists per report, and its three text
// slots must reference pairwise distinct elements.
type NextPlan struct {
	ID                    snowflake.ID  `gorm:"primaryKey" json:"id"`
	ReportID              snowflake.ID  `gorm:"uniqueIndex:ux_next_plans_report" json:"report_id"`
	ContinuedFromReportID *snowflake.ID `json:"continued_from_report_id,omitempty"`
	PlanText              string        `json:"plan_text"`
	MonsterID             snowflake.ID  `json:"monster_id"`
	LocationTextID        snowflake.ID  `json:"location_text_id"`
	MainEventTextID       snowflake.ID  `json:"main_event_text_id"`
	SideEventTextID       snowflake.ID  `json:"side_event_text_id"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

func (NextPlan) TableName() string {
	return "next_plans"
}

// TextElementIDs returns the three text slots in declaration order.
func (p *NextPlan) TextElementIDs() []snowflake.ID {
	return []snowflake.ID{p.LocationTextID, p.MainEventTextID, p.SideEventTextID}
}

// ElementIDs returns every claimable reference on the plan.
func (p *NextPlan) ElementIDs() []snowflake.ID {
	return []snowflake.ID{p.MonsterID, p.LocationTextID, p.MainEventTextID, p.SideEventTextID}
}
