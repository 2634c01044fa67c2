package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pass *Battlepass) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Battlepass, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Battlepass, error)
	// FindConsumable returns the user's ACTIVE pass with uses left, soonest
	// to expire first (passes without expiry sort last, oldest first).
	FindConsumable(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Battlepass, error)
	// DecrementUses decrements uses_left by one only while uses_left > 0 and
	// flips the status to USED_UP when it reaches zero.
	DecrementUses(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)
	MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error

	InsertWriteoff(ctx context.Context, db *gorm.DB, writeoff *Writeoff) error
	ListWriteoffsByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Writeoff, error)
	CountWriteoffsForReport(ctx context.Context, db *gorm.DB, reportID snowflake.ID) (int64, error)
}
