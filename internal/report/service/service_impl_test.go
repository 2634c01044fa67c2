package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	battlepassrepo "github.com/fablehold/fablehold/internal/battlepass/repository"
	battlepasssvc "github.com/fablehold/fablehold/internal/battlepass/service"
	"github.com/fablehold/fablehold/internal/clock"
	"github.com/fablehold/fablehold/internal/config"
	elementdomain "github.com/fablehold/fablehold/internal/element/domain"
	elementrepo "github.com/fablehold/fablehold/internal/element/repository"
	elementsvc "github.com/fablehold/fablehold/internal/element/service"
	notificationdomain "github.com/fablehold/fablehold/internal/notification/domain"
	notificationsvc "github.com/fablehold/fablehold/internal/notification/service"
	"github.com/fablehold/fablehold/internal/ratelimit"
	reportdomain "github.com/fablehold/fablehold/internal/report/domain"
	reportrepo "github.com/fablehold/fablehold/internal/report/repository"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pipeline struct {
	db            *gorm.DB
	node          *snowflake.Node
	clk           *clock.FakeClock
	reports       reportdomain.Service
	elements      elementdomain.Service
	battlepasses  battlepassdomain.Service
	notifications notificationdomain.Service
	limiter       *ratelimit.MemoryWindow
}

func setupPipeline(t *testing.T) *pipeline {
	t.Helper()

	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	err = db.AutoMigrate(
		&reportdomain.Report{},
		&reportdomain.ReportParticipant{},
		&reportdomain.NextPlan{},
		&elementdomain.StoryElement{},
		&battlepassdomain.Battlepass{},
		&battlepassdomain.Writeoff{},
		&notificationdomain.Notification{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	holder := config.NewStaticModerationConfigHolder(config.ModerationConfig{
		MaxActions: 100,
		Window:     time.Hour,
	})
	limiter := ratelimit.NewMemoryWindow(holder, clk)
	log := zap.NewNop()

	elements := elementsvc.NewService(elementsvc.Params{
		DB: db, Log: log, GenID: node, Repo: elementrepo.Provide(), Clock: clk,
	})
	battlepasses := battlepasssvc.NewService(battlepasssvc.Params{
		DB: db, Log: log, GenID: node, Repo: battlepassrepo.Provide(), Clock: clk,
	})
	notifications := notificationsvc.NewService(notificationsvc.Params{
		DB: db, Log: log, GenID: node, Clock: clk,
	})
	reports := NewService(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          reportrepo.Provide(),
		Clock:         clk,
		Battlepasses:  battlepasses,
		Elements:      elements,
		Notifications: notifications,
		Limiter:       limiter,
	})

	return &pipeline{
		db:            db,
		node:          node,
		clk:           clk,
		reports:       reports,
		elements:      elements,
		battlepasses:  battlepasses,
		notifications: notifications,
		limiter:       limiter,
	}
}

func (p *pipeline) master() actor.Actor {
	return actor.New(p.node.Generate())
}

func (p *pipeline) moderator() actor.Actor {
	return actor.New(p.node.Generate(), actor.CapabilityReportModerate)
}

func (p *pipeline) admin() actor.Actor {
	return actor.New(p.node.Generate(),
		actor.CapabilityReportModerate,
		actor.CapabilityReportCancel,
		actor.CapabilityElementManage,
		actor.CapabilityBattlepassManage,
	)
}

func (p *pipeline) submit(t *testing.T, master actor.Actor, participants ...snowflake.ID) *reportdomain.Report {
	t.Helper()
	report, err := p.reports.Submit(context.Background(), master, reportdomain.SubmitRequest{
		GroupID:        p.node.Generate(),
		Description:    "the party crossed the blackwater marsh",
		ParticipantIDs: participants,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	return report
}

func (p *pipeline) grantPass(t *testing.T, userID snowflake.ID, uses int) *battlepassdomain.Battlepass {
	t.Helper()
	pass, err := p.battlepasses.Grant(context.Background(), p.admin(), battlepassdomain.GrantRequest{
		UserID: userID,
		Uses:   uses,
	})
	if err != nil {
		t.Fatalf("grant pass: %v", err)
	}
	return pass
}

func (p *pipeline) approve(t *testing.T, act actor.Actor, reportID snowflake.ID) *reportdomain.ModerateResult {
	t.Helper()
	result, err := p.reports.Moderate(context.Background(), act, reportdomain.ModerateRequest{
		ID:     reportID,
		Action: reportdomain.ActionApprove,
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return result
}

func (p *pipeline) writeoffCount(t *testing.T, reportID snowflake.ID) int64 {
	t.Helper()
	var count int64
	err := p.db.Model(&battlepassdomain.Writeoff{}).Where("report_id = ?", reportID).Count(&count).Error
	if err != nil {
		t.Fatalf("count writeoffs: %v", err)
	}
	return count
}

func TestSubmitValidation(t *testing.T) {
	p := setupPipeline(t)
	master := p.master()

	_, err := p.reports.Submit(context.Background(), master, reportdomain.SubmitRequest{
		GroupID:        p.node.Generate(),
		Description:    "   ",
		ParticipantIDs: []snowflake.ID{p.node.Generate()},
	})
	if err != reportdomain.ErrInvalidDescription {
		t.Fatalf("expected ErrInvalidDescription, got %v", err)
	}

	_, err = p.reports.Submit(context.Background(), master, reportdomain.SubmitRequest{
		GroupID:     p.node.Generate(),
		Description: "a fine session",
	})
	if err != reportdomain.ErrNoParticipants {
		t.Fatalf("expected ErrNoParticipants, got %v", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	p := setupPipeline(t)
	report := p.submit(t, p.master(), p.node.Generate())
	moderator := p.moderator()

	for _, reason := range []string{"", "too short"} {
		_, err := p.reports.Moderate(context.Background(), moderator, reportdomain.ModerateRequest{
			ID:              report.ID,
			Action:          reportdomain.ActionReject,
			RejectionReason: reason,
		})
		if err != reportdomain.ErrInvalidRejectionReason {
			t.Fatalf("reason %q: expected ErrInvalidRejectionReason, got %v", reason, err)
		}
	}

	result, err := p.reports.Moderate(context.Background(), moderator, reportdomain.ModerateRequest{
		ID:              report.ID,
		Action:          reportdomain.ActionReject,
		RejectionReason: "needs more detail",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if result.Report.Status != reportdomain.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", result.Report.Status)
	}
	if result.Report.RejectionReason == nil || *result.Report.RejectionReason != "needs more detail" {
		t.Fatal("rejection reason should be stored")
	}
}

func TestModerateRequiresCapability(t *testing.T) {
	p := setupPipeline(t)
	report := p.submit(t, p.master(), p.node.Generate())

	_, err := p.reports.Moderate(context.Background(), p.master(), reportdomain.ModerateRequest{
		ID:     report.ID,
		Action: reportdomain.ActionApprove,
	})
	if err != reportdomain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestStatusMachineEdges(t *testing.T) {
	p := setupPipeline(t)
	moderator := p.moderator()
	admin := p.admin()
	master := p.master()

	// Approving twice: the second attempt finds the report off PENDING.
	report := p.submit(t, master, p.node.Generate())
	p.approve(t, moderator, report.ID)
	_, err := p.reports.Moderate(context.Background(), moderator, reportdomain.ModerateRequest{
		ID:     report.ID,
		Action: reportdomain.ActionApprove,
	})
	if err != reportdomain.ErrInvalidState {
		t.Fatalf("double approve: expected ErrInvalidState, got %v", err)
	}

	// Cancel requires APPROVED.
	pending := p.submit(t, master, p.node.Generate())
	if _, err := p.reports.Cancel(context.Background(), admin, pending.ID); err != reportdomain.ErrInvalidState {
		t.Fatalf("cancel pending: expected ErrInvalidState, got %v", err)
	}

	// Cancel requires the administrative capability.
	if _, err := p.reports.Cancel(context.Background(), moderator, report.ID); err != reportdomain.ErrForbidden {
		t.Fatalf("cancel without capability: expected ErrForbidden, got %v", err)
	}

	cancelled, err := p.reports.Cancel(context.Background(), admin, report.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != reportdomain.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}

	// CANCELLED is hard-terminal.
	if _, err := p.reports.Cancel(context.Background(), admin, report.ID); err != reportdomain.ErrInvalidState {
		t.Fatalf("cancel cancelled: expected ErrInvalidState, got %v", err)
	}
}

func TestUpdateOwnershipAndResubmission(t *testing.T) {
	p := setupPipeline(t)
	master := p.master()
	report := p.submit(t, master, p.node.Generate())

	stranger := p.master()
	newDescription := "updated session recap"
	if _, err := p.reports.Update(context.Background(), stranger, reportdomain.UpdateRequest{
		ID:          report.ID,
		Description: &newDescription,
	}); err != reportdomain.ErrForbidden {
		t.Fatalf("expected ErrForbidden for non-owner, got %v", err)
	}

	if _, err := p.reports.Moderate(context.Background(), p.moderator(), reportdomain.ModerateRequest{
		ID:              report.ID,
		Action:          reportdomain.ActionReject,
		RejectionReason: "needs more detail",
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	updated, err := p.reports.Update(context.Background(), master, reportdomain.UpdateRequest{
		ID:          report.ID,
		Description: &newDescription,
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if updated.Status != reportdomain.StatusPending {
		t.Fatalf("editing a rejected report should resubmit it, got %s", updated.Status)
	}
	if updated.RejectionReason != nil {
		t.Fatal("resubmission should clear the rejection reason")
	}
	if updated.Description != newDescription {
		t.Fatalf("description not applied: %q", updated.Description)
	}

	// Approved reports are no longer editable.
	p.approve(t, p.moderator(), report.ID)
	if _, err := p.reports.Update(context.Background(), master, reportdomain.UpdateRequest{
		ID:          report.ID,
		Description: &newDescription,
	}); err != reportdomain.ErrInvalidState {
		t.Fatalf("expected ErrInvalidState after approval, got %v", err)
	}
}

func TestApprovePartialCredits(t *testing.T) {
	p := setupPipeline(t)
	funded1 := p.node.Generate()
	funded2 := p.node.Generate()
	broke := p.node.Generate()
	p.grantPass(t, funded1, 2)
	p.grantPass(t, funded2, 1)

	report := p.submit(t, p.master(), funded1, funded2, broke)
	result := p.approve(t, p.moderator(), report.ID)

	if result.Report.Status != reportdomain.StatusApproved {
		t.Fatalf("approval must succeed despite a broke participant, got %s", result.Report.Status)
	}
	if len(result.PlayerOutcomes) != 3 {
		t.Fatalf("expected an outcome per participant, got %d", len(result.PlayerOutcomes))
	}

	consumed := map[snowflake.ID]bool{}
	for _, outcome := range result.PlayerOutcomes {
		if !outcome.OK {
			t.Fatalf("outcome for %s should be ok", outcome.UserID)
		}
		consumed[outcome.UserID] = outcome.Consumed
	}
	if !consumed[funded1] || !consumed[funded2] {
		t.Fatal("funded participants should be charged")
	}
	if consumed[broke] {
		t.Fatal("participant without credit must not be charged")
	}
	if count := p.writeoffCount(t, report.ID); count != 2 {
		t.Fatalf("expected 2 writeoffs, got %d", count)
	}
}

func TestApprovalRetryDoesNotDoubleCharge(t *testing.T) {
	p := setupPipeline(t)
	player := p.node.Generate()
	p.grantPass(t, player, 5)

	report := p.submit(t, p.master(), player)
	p.approve(t, p.moderator(), report.ID)

	// A retried consumption for the same report hits the unique writeoff key.
	outcome, err := p.battlepasses.ConsumeForReport(context.Background(), player, report.ID, nil)
	if err != nil {
		t.Fatalf("retried consume: %v", err)
	}
	if !outcome.AlreadyRedeemed {
		t.Fatalf("expected AlreadyRedeemed on retry, got %+v", outcome)
	}
	if count := p.writeoffCount(t, report.ID); count != 1 {
		t.Fatalf("expected exactly one writeoff, got %d", count)
	}
}

func TestModerationRateLimited(t *testing.T) {
	p := setupPipeline(t)
	moderator := p.moderator()

	for i := 0; i < 100; i++ {
		report := p.submit(t, p.master(), p.node.Generate())
		p.approve(t, moderator, report.ID)
	}

	report := p.submit(t, p.master(), p.node.Generate())
	_, err := p.reports.Moderate(context.Background(), moderator, reportdomain.ModerateRequest{
		ID:     report.ID,
		Action: reportdomain.ActionApprove,
	})
	if err != reportdomain.ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	reloaded, err := p.reports.Get(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != reportdomain.StatusPending {
		t.Fatalf("throttled moderation must not mutate state, got %s", reloaded.Status)
	}

	// A different moderator is unaffected.
	other := p.moderator()
	p.approve(t, other, report.ID)
}

func TestCancelKeepsWriteoffsAndLocks(t *testing.T) {
	p := setupPipeline(t)
	player := p.node.Generate()
	p.grantPass(t, player, 2)

	report := p.submit(t, p.master(), player)
	p.approve(t, p.moderator(), report.ID)
	if _, err := p.reports.Cancel(context.Background(), p.admin(), report.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Cancellation is a status flag only: the charge stays on the ledger.
	if count := p.writeoffCount(t, report.ID); count != 1 {
		t.Fatalf("cancel must not reverse writeoffs, got %d", count)
	}
}

func TestEndToEndRejectResubmitApprove(t *testing.T) {
	p := setupPipeline(t)
	master := p.master()
	playerA := p.node.Generate()
	playerB := p.node.Generate()
	p.grantPass(t, playerA, 1)
	p.grantPass(t, playerB, 1)

	report := p.submit(t, master, playerA, playerB)

	if _, err := p.reports.Moderate(context.Background(), p.moderator(), reportdomain.ModerateRequest{
		ID:              report.ID,
		Action:          reportdomain.ActionReject,
		RejectionReason: "needs more detail",
	}); err != nil {
		t.Fatalf("reject: %v", err)
	}

	edited := "the party crossed the blackwater marsh, and barely survived"
	if _, err := p.reports.Update(context.Background(), master, reportdomain.UpdateRequest{
		ID:          report.ID,
		Description: &edited,
	}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	result := p.approve(t, p.moderator(), report.ID)
	if result.Report.Status != reportdomain.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", result.Report.Status)
	}
	if count := p.writeoffCount(t, report.ID); count != 2 {
		t.Fatalf("both participants should be charged, got %d writeoffs", count)
	}

	for _, playerID := range []snowflake.ID{playerA, playerB} {
		rows, err := p.notifications.ListByUser(context.Background(), playerID)
		if err != nil {
			t.Fatalf("list notifications: %v", err)
		}
		var successes int
		for _, row := range rows {
			if row.Type == notificationdomain.TypeSuccess {
				successes++
			}
		}
		if successes != 1 {
			t.Fatalf("player %s should have one SUCCESS notification, got %d", playerID, successes)
		}
	}

	masterRows, err := p.notifications.ListByUser(context.Background(), master.ID)
	if err != nil {
		t.Fatalf("list master notifications: %v", err)
	}
	var approvedNotes int
	for _, row := range masterRows {
		if row.Type == notificationdomain.TypeSuccess {
			approvedNotes++
		}
	}
	if approvedNotes != 1 {
		t.Fatalf("master should have one approval notification, got %d", approvedNotes)
	}
}

func TestStaleResubmissionCannotOverrideApproval(t *testing.T) {
	p := setupPipeline(t)
	master := p.master()

	report := p.submit(t, master, p.node.Generate())
	// Keep the PENDING row the owner read before the moderator acted.
	stale := *report

	p.approve(t, p.moderator(), report.ID)

	stale.Description = "edited from a read taken before approval"
	ok, err := reportrepo.Provide().UpdateEditable(context.Background(), p.db, &stale)
	if err != nil {
		t.Fatalf("stale write: %v", err)
	}
	if ok {
		t.Fatal("a stale resubmission must not affect a decided report")
	}

	reloaded, err := p.reports.Get(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != reportdomain.StatusApproved {
		t.Fatalf("committed approval was undone, got %s", reloaded.Status)
	}
	if reloaded.Description != report.Description {
		t.Fatal("stale description leaked into a decided report")
	}
}

func (p *pipeline) seedGridElements(t *testing.T) (monster, location, mainEvent, sideEvent snowflake.ID) {
	t.Helper()
	admin := p.admin()
	create := func(kind elementdomain.ElementKind, title string) snowflake.ID {
		element, err := p.elements.Create(context.Background(), admin, elementdomain.CreateRequest{
			Kind:  kind,
			Title: title,
			Body:  "body for " + title,
		})
		if err != nil {
			t.Fatalf("create element: %v", err)
		}
		return element.ID
	}
	return create(elementdomain.KindMonster, "ashen colossus"),
		create(elementdomain.KindLocationText, "the sunken archive"),
		create(elementdomain.KindEventText, "a stranger's bargain"),
		create(elementdomain.KindEventText, "the bridge collapses")
}

func (p *pipeline) approvedReport(t *testing.T, master actor.Actor) *reportdomain.Report {
	t.Helper()
	report := p.submit(t, master, p.node.Generate())
	p.approve(t, p.moderator(), report.ID)
	return report
}

func TestAttachPlanValidation(t *testing.T) {
	p := setupPipeline(t)
	master := p.master()
	monster, location, mainEvent, sideEvent := p.seedGridElements(t)

	// Plans attach to approved reports only.
	pending := p.submit(t, master, p.node.Generate())
	_, err := p.reports.AttachPlan(context.Background(), master, reportdomain.AttachPlanRequest{
		ReportID:        pending.ID,
		PlanText:        "press on to the archive",
		MonsterID:       monster,
		LocationTextID:  location,
		MainEventTextID: mainEvent,
		SideEventTextID: sideEvent,
	})
	if err != reportdomain.ErrInvalidState {
		t.Fatalf("pending report: expected ErrInvalidState, got %v", err)
	}

	report := p.approvedReport(t, master)

	// Text references must be pairwise distinct.
	_, err = p.reports.AttachPlan(context.Background(), master, reportdomain.AttachPlanRequest{
		ReportID:        report.ID,
		PlanText:        "press on to the archive",
		MonsterID:       monster,
		LocationTextID:  location,
		MainEventTextID: mainEvent,
		SideEventTextID: mainEvent,
	})
	if err != reportdomain.ErrPlanTextsNotUnique {
		t.Fatalf("duplicate text refs: expected ErrPlanTextsNotUnique, got %v", err)
	}

	_, err = p.reports.AttachPlan(context.Background(), master, reportdomain.AttachPlanRequest{
		ReportID:        report.ID,
		PlanText:        strings.Repeat("x", 2001),
		MonsterID:       monster,
		LocationTextID:  location,
		MainEventTextID: mainEvent,
		SideEventTextID: sideEvent,
	})
	if err != reportdomain.ErrPlanTextTooLong {
		t.Fatalf("oversized plan text: expected ErrPlanTextTooLong, got %v", err)
	}

	// Only the report's master may attach a plan.
	_, err = p.reports.AttachPlan(context.Background(), p.master(), reportdomain.AttachPlanRequest{
		ReportID:        report.ID,
		PlanText:        "press on to the archive",
		MonsterID:       monster,
		LocationTextID:  location,
		MainEventTextID: mainEvent,
		SideEventTextID: sideEvent,
	})
	if err != reportdomain.ErrForbidden {
		t.Fatalf("non-owner: expected ErrForbidden, got %v", err)
	}
}

func TestAttachPlanClaimsGridOnce(t *testing.T) {
	p := setupPipeline(t)
	master := p.master()
	report := p.approvedReport(t, master)
	monster, location, mainEvent, sideEvent := p.seedGridElements(t)

	plan, err := p.reports.AttachPlan(context.Background(), master, reportdomain.AttachPlanRequest{
		ReportID:        report.ID,
		PlanText:        "follow the colossus into the archive",
		MonsterID:       monster,
		LocationTextID:  location,
		MainEventTextID: mainEvent,
		SideEventTextID: sideEvent,
	})
	if err != nil {
		t.Fatalf("attach plan: %v", err)
	}
	if plan.ReportID != report.ID {
		t.Fatalf("plan bound to wrong report: %s", plan.ReportID)
	}

	// All four grid elements are now locked.
	available, err := p.elements.CheckAvailability(context.Background(), []snowflake.ID{monster, location, mainEvent, sideEvent})
	if err != nil {
		t.Fatalf("check availability: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("attached grid must be locked, %d elements still available", len(available))
	}

	// One plan per report, even with a fresh grid.
	m2, l2, e2, e3 := p.seedGridElements(t)
	_, err = p.reports.AttachPlan(context.Background(), master, reportdomain.AttachPlanRequest{
		ReportID:        report.ID,
		PlanText:        "a second plan",
		MonsterID:       m2,
		LocationTextID:  l2,
		MainEventTextID: e2,
		SideEventTextID: e3,
	})
	if err != reportdomain.ErrPlanExists {
		t.Fatalf("second attach: expected ErrPlanExists, got %v", err)
	}

	got, err := p.reports.GetPlan(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if got.ID != plan.ID {
		t.Fatal("stored plan does not match the attached one")
	}
}

func TestAttachPlanLostClaimRollsBack(t *testing.T) {
	p := setupPipeline(t)
	master := p.master()
	report := p.approvedReport(t, master)
	monster, location, mainEvent, sideEvent := p.seedGridElements(t)

	// Another report already holds the side event.
	rival := p.approvedReport(t, p.master())
	ok, err := p.elements.Claim(context.Background(), sideEvent, rival.ID, rival.GroupID)
	if err != nil || !ok {
		t.Fatalf("rival claim: ok=%v err=%v", ok, err)
	}

	_, err = p.reports.AttachPlan(context.Background(), master, reportdomain.AttachPlanRequest{
		ReportID:        report.ID,
		PlanText:        "doomed plan",
		MonsterID:       monster,
		LocationTextID:  location,
		MainEventTextID: mainEvent,
		SideEventTextID: sideEvent,
	})
	if err != reportdomain.ErrElementClaimLost {
		t.Fatalf("expected ErrElementClaimLost, got %v", err)
	}

	// The claims taken before the loss are rolled back.
	available, err := p.elements.CheckAvailability(context.Background(), []snowflake.ID{monster, location, mainEvent})
	if err != nil {
		t.Fatalf("check availability: %v", err)
	}
	if len(available) != 3 {
		t.Fatalf("lost attach must release its claims, got %d of 3 available", len(available))
	}

	// The rival's lock is untouched.
	held, err := p.elements.Get(context.Background(), sideEvent)
	if err != nil {
		t.Fatalf("get side event: %v", err)
	}
	if held.Status != elementdomain.StatusLocked || held.LockedByReportID == nil || *held.LockedByReportID != rival.ID {
		t.Fatal("rollback disturbed another report's lock")
	}

	// No plan row was left behind.
	if _, err := p.reports.GetPlan(context.Background(), report.ID); err != reportdomain.ErrPlanNotFound {
		t.Fatalf("expected ErrPlanNotFound after failed attach, got %v", err)
	}
}
