package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Kind       ElementKind
	Status     ElementStatus
	ActiveOnly bool
	AfterID    snowflake.ID
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, element *StoryElement) error
	Update(ctx context.Context, db *gorm.DB, element *StoryElement) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*StoryElement, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]StoryElement, error)
	ListAvailableByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]StoryElement, error)
	ListAvailableByKind(ctx context.Context, db *gorm.DB, kind ElementKind) ([]StoryElement, error)
	// Claim is a single conditional update: it locks the element only if it
	// is currently AVAILABLE and active, and reports whether the row changed.
	Claim(ctx context.Context, db *gorm.DB, id, reportID, groupID snowflake.ID, at time.Time) (bool, error)
	// Release unconditionally resets the lock fields.
	Release(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
	// ReleaseIfClaimedBy releases only when the element is held by reportID.
	ReleaseIfClaimedBy(ctx context.Context, db *gorm.DB, id, reportID snowflake.ID, at time.Time) (bool, error)
	// DeleteAvailable removes the element only while it is AVAILABLE.
	DeleteAvailable(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
