// Package domain contains persistence models for play groups.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound    = errors.New("not_found")
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidName = errors.New("invalid_name")
)

// Group is a recurring table of players run by one game master.
type Group struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	Name        string       `gorm:"type:text;not null"`
	Slug        string       `gorm:"type:text;not null;uniqueIndex"`
	Description string       `gorm:"type:text"`
	MasterID    snowflake.ID `gorm:"not null;index"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Group) TableName() string { return "groups" }
