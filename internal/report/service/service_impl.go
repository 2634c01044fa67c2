package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	"github.com/fablehold/fablehold/internal/clock"
	elementdomain "github.com/fablehold/fablehold/internal/element/domain"
	notificationdomain "github.com/fablehold/fablehold/internal/notification/domain"
	obsmetrics "github.com/fablehold/fablehold/internal/observability/metrics"
	"github.com/fablehold/fablehold/internal/ratelimit"
	reportdomain "github.com/fablehold/fablehold/internal/report/domain"
	"github.com/fablehold/fablehold/pkg/db"
	"github.com/fablehold/fablehold/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxDescriptionLen     = 10000
	minRejectionReasonLen = 10
	maxPlanTextLen        = 2000
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          reportdomain.Repository
	Clock         clock.Clock
	Battlepasses  battlepassdomain.Service
	Elements      elementdomain.Service
	Notifications notificationdomain.Service
	Limiter       ratelimit.ModerationLimiter
	ObsMetrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          reportdomain.Repository
	clock         clock.Clock
	battlepasses  battlepassdomain.Service
	elements      elementdomain.Service
	notifications notificationdomain.Service
	limiter       ratelimit.ModerationLimiter
	obsMetrics    *obsmetrics.Metrics
}

func NewService(p Params) reportdomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("report.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		clock:         p.Clock,
		battlepasses:  p.Battlepasses,
		elements:      p.Elements,
		notifications: p.Notifications,
		limiter:       p.Limiter,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) Submit(ctx context.Context, act actor.Actor, req reportdomain.SubmitRequest) (*reportdomain.Report, error) {
	description := strings.TrimSpace(req.Description)
	if description == "" || len(description) > maxDescriptionLen {
		return nil, reportdomain.ErrInvalidDescription
	}
	participantIDs := dedupeIDs(req.ParticipantIDs)
	if len(participantIDs) == 0 {
		return nil, reportdomain.ErrNoParticipants
	}

	now := s.clock.Now()
	report := &reportdomain.Report{
		ID:          s.genID.Generate(),
		GroupID:     req.GroupID,
		MasterID:    act.ID,
		Description: description,
		Highlights:  req.Highlights,
		SessionID:   req.SessionID,
		Status:      reportdomain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, userID := range participantIDs {
		report.Participants = append(report.Participants, reportdomain.ReportParticipant{
			ID:       s.genID.Generate(),
			ReportID: report.ID,
			UserID:   userID,
		})
	}

	if err := s.repo.Insert(ctx, s.db, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) Update(ctx context.Context, act actor.Actor, req reportdomain.UpdateRequest) (*reportdomain.Report, error) {
	report, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return nil, err
	}
	if report.MasterID != act.ID {
		return nil, reportdomain.ErrForbidden
	}
	if report.Status != reportdomain.StatusPending && report.Status != reportdomain.StatusRejected {
		return nil, reportdomain.ErrInvalidState
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" || len(description) > maxDescriptionLen {
			return nil, reportdomain.ErrInvalidDescription
		}
		report.Description = description
	}
	if req.Highlights != nil {
		report.Highlights = req.Highlights
	}

	// Editing a rejected report resubmits it.
	if report.Status == reportdomain.StatusRejected {
		report.Status = reportdomain.StatusPending
		report.RejectionReason = nil
	}
	report.UpdatedAt = s.clock.Now()

	ok, err := s.repo.UpdateEditable(ctx, s.db, report)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A moderator decided the report between our read and the write.
		return nil, reportdomain.ErrInvalidState
	}
	return report, nil
}

func (s *Service) Moderate(ctx context.Context, act actor.Actor, req reportdomain.ModerateRequest) (*reportdomain.ModerateResult, error) {
	if !act.Can(actor.CapabilityReportModerate) {
		return nil, reportdomain.ErrForbidden
	}

	var rejectionReason *string
	switch req.Action {
	case reportdomain.ActionApprove:
	case reportdomain.ActionReject:
		reason := strings.TrimSpace(req.RejectionReason)
		if len(reason) < minRejectionReasonLen {
			return nil, reportdomain.ErrInvalidRejectionReason
		}
		rejectionReason = &reason
	default:
		return nil, reportdomain.ErrInvalidAction
	}

	report, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return nil, err
	}
	if report.Status != reportdomain.StatusPending {
		return nil, reportdomain.ErrInvalidState
	}

	allowed, err := s.limiter.CheckAndRecord(ctx, act.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.obsMetrics.RecordModeration(string(req.Action), "rate_limited")
		return nil, reportdomain.ErrRateLimited
	}

	to := reportdomain.StatusApproved
	event := notificationdomain.EventApproved
	if req.Action == reportdomain.ActionReject {
		to = reportdomain.StatusRejected
		event = notificationdomain.EventRejected
	}

	// The status flip is the commit point. Everything after it is best
	// effort and never rolls it back.
	moved, err := s.repo.Transition(ctx, s.db, report.ID, reportdomain.StatusPending, to, rejectionReason, s.clock.Now())
	if err != nil {
		s.obsMetrics.RecordModeration(string(req.Action), "error")
		return nil, err
	}
	if !moved {
		// Lost a moderation race; the report is no longer PENDING.
		s.obsMetrics.RecordModeration(string(req.Action), "invalid_state")
		return nil, reportdomain.ErrInvalidState
	}
	report.Status = to
	report.RejectionReason = rejectionReason

	result := &reportdomain.ModerateResult{Report: report}
	if req.Action == reportdomain.ActionApprove {
		result.PlayerOutcomes = s.consumeParticipants(ctx, report)
	}

	reason := ""
	if rejectionReason != nil {
		reason = *rejectionReason
	}
	s.broadcast(ctx, report, event, reason)

	s.obsMetrics.RecordModeration(string(req.Action), "ok")
	return result, nil
}

// consumeParticipants charges each participant in its own transaction. One
// player's failure never blocks the rest of the batch.
func (s *Service) consumeParticipants(ctx context.Context, report *reportdomain.Report) []battlepassdomain.ConsumeOutcome {
	outcomes := make([]battlepassdomain.ConsumeOutcome, 0, len(report.Participants))
	for _, p := range report.Participants {
		outcome, err := s.battlepasses.ConsumeForReport(ctx, p.UserID, report.ID, report.SessionID)
		if err != nil {
			s.log.Error("battlepass consumption failed",
				zap.Error(err),
				zap.Stringer("report_id", report.ID),
				zap.Stringer("user_id", p.UserID),
			)
			outcome = battlepassdomain.ConsumeOutcome{UserID: p.UserID, OK: false}
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (s *Service) broadcast(ctx context.Context, report *reportdomain.Report, event notificationdomain.ReportEvent, reason string) {
	err := s.notifications.Broadcast(ctx, notificationdomain.BroadcastInput{
		ReportID:       report.ID,
		GroupID:        report.GroupID,
		OwnerID:        report.MasterID,
		ParticipantIDs: report.ParticipantIDs(),
		Event:          event,
		Reason:         reason,
	})
	if err != nil {
		s.log.Warn("notification fanout failed",
			zap.Error(err),
			zap.Stringer("report_id", report.ID),
			zap.String("event", string(event)),
		)
	}
}

func (s *Service) Cancel(ctx context.Context, act actor.Actor, id snowflake.ID) (*reportdomain.Report, error) {
	if !act.Can(actor.CapabilityReportCancel) {
		return nil, reportdomain.ErrForbidden
	}

	report, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if report.Status != reportdomain.StatusApproved {
		return nil, reportdomain.ErrInvalidState
	}

	moved, err := s.repo.Transition(ctx, s.db, report.ID, reportdomain.StatusApproved, reportdomain.StatusCancelled, report.RejectionReason, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, reportdomain.ErrInvalidState
	}
	report.Status = reportdomain.StatusCancelled

	// Writeoffs stay consumed and claimed elements stay locked; undoing
	// either is a manual administrative step.
	s.broadcast(ctx, report, notificationdomain.EventCancelled, "")

	return report, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*reportdomain.Report, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context, req reportdomain.ListRequest) ([]reportdomain.Report, *pagination.PageInfo, error) {
	limit := req.PageSize
	if limit <= 0 || limit > 250 {
		limit = 20
	}

	filter := reportdomain.ListFilter{
		GroupID:  req.GroupID,
		MasterID: req.MasterID,
		Status:   req.Status,
		Limit:    limit + 1,
	}
	if req.PageToken != "" {
		if cursor, err := pagination.DecodeCursor(req.PageToken); err == nil {
			if id, err := snowflake.ParseString(cursor.ID); err == nil {
				filter.AfterID = id
			}
		}
	}

	reports, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, nil, err
	}
	reports, pageInfo := pagination.BuildCursorPageInfo(reports, limit, func(r reportdomain.Report) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: r.ID.String()})
		return token
	})
	return reports, pageInfo, nil
}

func (s *Service) AttachPlan(ctx context.Context, act actor.Actor, req reportdomain.AttachPlanRequest) (*reportdomain.NextPlan, error) {
	report, err := s.repo.FindByID(ctx, s.db, req.ReportID)
	if err != nil {
		return nil, err
	}
	if report.MasterID != act.ID {
		return nil, reportdomain.ErrForbidden
	}
	if report.Status != reportdomain.StatusApproved {
		return nil, reportdomain.ErrInvalidState
	}

	planText := strings.TrimSpace(req.PlanText)
	if len(planText) > maxPlanTextLen {
		return nil, reportdomain.ErrPlanTextTooLong
	}
	textIDs := []snowflake.ID{req.LocationTextID, req.MainEventTextID, req.SideEventTextID}
	if textIDs[0] == textIDs[1] || textIDs[0] == textIDs[2] || textIDs[1] == textIDs[2] {
		return nil, reportdomain.ErrPlanTextsNotUnique
	}

	if _, err := s.repo.FindPlanByReport(ctx, s.db, report.ID); err == nil {
		return nil, reportdomain.ErrPlanExists
	} else if err != reportdomain.ErrPlanNotFound {
		return nil, err
	}

	now := s.clock.Now()
	plan := &reportdomain.NextPlan{
		ID:                    s.genID.Generate(),
		ReportID:              report.ID,
		ContinuedFromReportID: req.ContinuedFromReportID,
		PlanText:              planText,
		MonsterID:             req.MonsterID,
		LocationTextID:        req.LocationTextID,
		MainEventTextID:       req.MainEventTextID,
		SideEventTextID:       req.SideEventTextID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	// Claim the grid one element at a time. A lost claim rolls back the
	// elements already taken; the loser must pick different elements.
	claimed := make([]snowflake.ID, 0, 4)
	rollback := func() {
		for _, elementID := range claimed {
			if err := s.elements.ReleaseClaim(ctx, elementID, report.ID); err != nil {
				s.log.Error("claim rollback failed",
					zap.Error(err),
					zap.Stringer("element_id", elementID),
					zap.Stringer("report_id", report.ID),
				)
			}
		}
	}
	for _, elementID := range plan.ElementIDs() {
		ok, err := s.elements.Claim(ctx, elementID, report.ID, report.GroupID)
		if err != nil {
			rollback()
			return nil, err
		}
		if !ok {
			rollback()
			return nil, reportdomain.ErrElementClaimLost
		}
		claimed = append(claimed, elementID)
	}

	if err := s.repo.InsertPlan(ctx, s.db, plan); err != nil {
		rollback()
		if db.IsDuplicateKeyErr(err) {
			return nil, reportdomain.ErrPlanExists
		}
		return nil, err
	}
	return plan, nil
}

func (s *Service) GetPlan(ctx context.Context, reportID snowflake.ID) (*reportdomain.NextPlan, error) {
	return s.repo.FindPlanByReport(ctx, s.db, reportID)
}

func dedupeIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
