package domain

import "errors"

var (
	ErrNotFound  = errors.New("report_not_found")
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState means the requested transition is not an edge of the
	// status machine from the report's current status.
	ErrInvalidState = errors.New("invalid_state")

	// ErrRateLimited means the actor exhausted the moderation window; nothing
	// was mutated.
	ErrRateLimited = errors.New("moderation_rate_limited")

	ErrInvalidDescription     = errors.New("invalid_description")
	ErrNoParticipants         = errors.New("no_participants")
	ErrInvalidAction          = errors.New("invalid_moderation_action")
	ErrInvalidRejectionReason = errors.New("invalid_rejection_reason")

	ErrPlanNotFound       = errors.New("plan_not_found")
	ErrPlanTextTooLong    = errors.New("plan_text_too_long")
	ErrPlanTextsNotUnique = errors.New("plan_text_refs_not_distinct")
	// ErrPlanExists means the report already carries a next plan.
	ErrPlanExists = errors.New("plan_already_attached")
	// ErrElementClaimLost means another report claimed one of the plan's
	// elements first; any partial claims were rolled back.
	ErrElementClaimLost = errors.New("element_claim_lost")
)
