package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	"github.com/fablehold/fablehold/internal/battlepass/repository"
	"github.com/fablehold/fablehold/internal/clock"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupBattlepassService(t *testing.T, node *snowflake.Node) (battlepassdomain.Service, *gorm.DB) {
	t.Helper()

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

	if err := db.AutoMigrate(&battlepassdomain.Battlepass{}, &battlepassdomain.Writeoff{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewSystemClock(),
	})
	return svc, db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func grantPass(t *testing.T, svc battlepassdomain.Service, node *snowflake.Node, userID snowflake.ID, uses int, expiresAt *time.Time) *battlepassdomain.Battlepass {
	t.Helper()
	admin := actor.New(node.Generate(), actor.CapabilityBattlepassManage)
	pass, err := svc.Grant(context.Background(), admin, battlepassdomain.GrantRequest{
		UserID:    userID,
		Uses:      uses,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	return pass
}

func countWriteoffs(t *testing.T, db *gorm.DB, userID snowflake.ID) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&battlepassdomain.Writeoff{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("count writeoffs: %v", err)
	}
	return count
}

func TestConsumeWithoutCredit(t *testing.T) {
	node := mustNode(t)
	svc, db := setupBattlepassService(t, node)
	userID := node.Generate()

	outcome, err := svc.ConsumeForReport(context.Background(), userID, node.Generate(), nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !outcome.OK || outcome.Consumed {
		t.Fatalf("expected ok without consumption, got %+v", outcome)
	}
	if count := countWriteoffs(t, db, userID); count != 0 {
		t.Fatalf("expected no writeoffs, got %d", count)
	}
}

func TestConsumeLastUseFlipsUsedUp(t *testing.T) {
	node := mustNode(t)
	svc, db := setupBattlepassService(t, node)
	userID := node.Generate()
	pass := grantPass(t, svc, node, userID, 1, nil)

	outcome, err := svc.ConsumeForReport(context.Background(), userID, node.Generate(), nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !outcome.OK || !outcome.Consumed {
		t.Fatalf("expected a consumed outcome, got %+v", outcome)
	}
	if outcome.BattlepassID == nil || *outcome.BattlepassID != pass.ID {
		t.Fatal("outcome should name the consumed battlepass")
	}

	var persisted battlepassdomain.Battlepass
	if err := db.First(&persisted, "id = ?", pass.ID).Error; err != nil {
		t.Fatalf("reload pass: %v", err)
	}
	if persisted.UsesLeft != 0 {
		t.Fatalf("expected 0 uses left, got %d", persisted.UsesLeft)
	}
	if persisted.Status != battlepassdomain.StatusUsedUp {
		t.Fatalf("expected USED_UP, got %s", persisted.Status)
	}
}

func TestConsumeIdempotentPerReport(t *testing.T) {
	node := mustNode(t)
	svc, db := setupBattlepassService(t, node)
	userID := node.Generate()
	reportID := node.Generate()
	pass := grantPass(t, svc, node, userID, 3, nil)

	first, err := svc.ConsumeForReport(context.Background(), userID, reportID, nil)
	if err != nil {
		t.Fatalf("first consume: %v", err)
	}
	if !first.Consumed {
		t.Fatalf("expected first consume to charge, got %+v", first)
	}

	second, err := svc.ConsumeForReport(context.Background(), userID, reportID, nil)
	if err != nil {
		t.Fatalf("retried consume: %v", err)
	}
	if !second.OK || second.Consumed || !second.AlreadyRedeemed {
		t.Fatalf("expected already-redeemed outcome, got %+v", second)
	}

	if count := countWriteoffs(t, db, userID); count != 1 {
		t.Fatalf("expected exactly one writeoff, got %d", count)
	}

	// The retried charge must not decrement again.
	var persisted battlepassdomain.Battlepass
	if err := db.First(&persisted, "id = ?", pass.ID).Error; err != nil {
		t.Fatalf("reload pass: %v", err)
	}
	if persisted.UsesLeft != 2 {
		t.Fatalf("expected 2 uses left after retry, got %d", persisted.UsesLeft)
	}
}

func TestConsumePrefersSoonestExpiry(t *testing.T) {
	node := mustNode(t)
	svc, _ := setupBattlepassService(t, node)
	userID := node.Generate()

	later := time.Now().UTC().Add(72 * time.Hour)
	sooner := time.Now().UTC().Add(24 * time.Hour)
	grantPass(t, svc, node, userID, 2, &later)
	expiring := grantPass(t, svc, node, userID, 2, &sooner)
	grantPass(t, svc, node, userID, 2, nil)

	outcome, err := svc.ConsumeForReport(context.Background(), userID, node.Generate(), nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if outcome.BattlepassID == nil || *outcome.BattlepassID != expiring.ID {
		t.Fatal("expected the soonest-to-expire pass to be consumed first")
	}
}

func TestExpiredPassIsNotConsumable(t *testing.T) {
	node := mustNode(t)
	svc, _ := setupBattlepassService(t, node)
	userID := node.Generate()
	pass := grantPass(t, svc, node, userID, 2, nil)

	admin := actor.New(node.Generate(), actor.CapabilityBattlepassManage)
	if err := svc.Expire(context.Background(), admin, pass.ID); err != nil {
		t.Fatalf("expire: %v", err)
	}

	outcome, err := svc.ConsumeForReport(context.Background(), userID, node.Generate(), nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if outcome.Consumed {
		t.Fatal("expired pass must not be consumable")
	}
}

func TestGrantRequiresCapability(t *testing.T) {
	node := mustNode(t)
	svc, _ := setupBattlepassService(t, node)

	_, err := svc.Grant(context.Background(), actor.New(node.Generate()), battlepassdomain.GrantRequest{
		UserID: node.Generate(),
		Uses:   2,
	})
	if err != battlepassdomain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
