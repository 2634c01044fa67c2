// Package domain contains persistence models for battlepass credits and
// their immutable consumption records.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BattlepassStatus tracks the lifecycle of a credit allowance.
type BattlepassStatus string

const (
	StatusActive  BattlepassStatus = "ACTIVE"
	StatusExpired BattlepassStatus = "EXPIRED"
	StatusUsedUp  BattlepassStatus = "USED_UP"
)

// Battlepass is a per-user consumable allowance of playable sessions.
// 0 <= UsesLeft <= UsesTotal always holds; UsesLeft only decreases through a
// Writeoff.
type Battlepass struct {
	ID        snowflake.ID     `gorm:"primaryKey"`
	UserID    snowflake.ID     `gorm:"not null;index"`
	UsesTotal int              `gorm:"not null"`
	UsesLeft  int              `gorm:"not null"`
	Status    BattlepassStatus `gorm:"type:text;not null;index"`
	ExpiresAt *time.Time       `gorm:""`
	CreatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Battlepass) TableName() string { return "battlepasses" }

// Writeoff records one unit of a battlepass consumed for one report. The
// unique (user_id, report_id) index makes consumption idempotent under retry.
type Writeoff struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	UserID       snowflake.ID  `gorm:"not null;uniqueIndex:ux_writeoffs_user_report,priority:1"`
	BattlepassID snowflake.ID  `gorm:"not null;index"`
	ReportID     snowflake.ID  `gorm:"not null;uniqueIndex:ux_writeoffs_user_report,priority:2"`
	SessionID    *snowflake.ID `gorm:""`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Writeoff) TableName() string { return "writeoffs" }
