package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	"github.com/fablehold/fablehold/internal/clock"
	groupdomain "github.com/fablehold/fablehold/internal/group/domain"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupGroupService(t *testing.T) (groupdomain.Service, *snowflake.Node) {
	t.Helper()

	node, err := snowflake.NewNode(7)
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

	if err := db.AutoMigrate(&groupdomain.Group{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	return svc, node
}

func TestCreateSlugsAreUnique(t *testing.T) {
	svc, node := setupGroupService(t)
	master := actor.New(node.Generate())

	first, err := svc.Create(context.Background(), master, groupdomain.CreateRequest{Name: "Night Watch"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.Slug != "night-watch" {
		t.Fatalf("unexpected slug %q", first.Slug)
	}
	if first.MasterID != master.ID {
		t.Fatal("creator should become the group's master")
	}

	second, err := svc.Create(context.Background(), master, groupdomain.CreateRequest{Name: "Night Watch"})
	if err != nil {
		t.Fatalf("create duplicate name: %v", err)
	}
	if second.Slug == first.Slug {
		t.Fatalf("slug collision not resolved: %q", second.Slug)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc, node := setupGroupService(t)

	_, err := svc.Create(context.Background(), actor.New(node.Generate()), groupdomain.CreateRequest{Name: "   "})
	if err != groupdomain.ErrInvalidName {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestUpdateGuardedByOwnership(t *testing.T) {
	svc, node := setupGroupService(t)
	master := actor.New(node.Generate())

	group, err := svc.Create(context.Background(), master, groupdomain.CreateRequest{Name: "Emberfall"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newName := "Emberfall Reborn"
	stranger := actor.New(node.Generate())
	if _, err := svc.Update(context.Background(), stranger, groupdomain.UpdateRequest{ID: group.ID, Name: &newName}); err != groupdomain.ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	steward := actor.New(node.Generate(), actor.CapabilityGroupManage)
	updated, err := svc.Update(context.Background(), steward, groupdomain.UpdateRequest{ID: group.ID, Name: &newName})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != newName {
		t.Fatalf("name not applied: %q", updated.Name)
	}
}
