package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var ErrInvalidUser = errors.New("invalid_user")

// ReportEvent names the terminal transitions the fanout reacts to.
type ReportEvent string

const (
	EventApproved  ReportEvent = "approved"
	EventRejected  ReportEvent = "rejected"
	EventCancelled ReportEvent = "cancelled"
)

// BroadcastInput describes one report transition to fan out. The report is
// passed by value fields rather than a model reference so the fanout stays
// decoupled from the report package.
type BroadcastInput struct {
	ReportID       snowflake.ID
	GroupID        snowflake.ID
	OwnerID        snowflake.ID
	ParticipantIDs []snowflake.ID
	Event          ReportEvent
	Reason         string
}

type Service interface {
	// Broadcast persists one notification for the owner and one per
	// participant in a single batch insert. Failures must be swallowed by
	// the caller; a missed notification never undoes a state transition.
	Broadcast(ctx context.Context, in BroadcastInput) error
	ListByUser(ctx context.Context, userID snowflake.ID) ([]Notification, error)
}
