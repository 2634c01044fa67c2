// Package domain contains persistence models for the shared story element
// catalog: monsters and narrative texts that reports claim exclusively.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ElementKind discriminates the catalog variants.
type ElementKind string

const (
	KindMonster      ElementKind = "MONSTER"
	KindLocationText ElementKind = "LOCATION_TEXT"
	KindEventText    ElementKind = "EVENT_TEXT"
)

func (k ElementKind) Valid() bool {
	switch k {
	case KindMonster, KindLocationText, KindEventText:
		return true
	default:
		return false
	}
}

// ElementStatus tracks whether an element is claimable.
type ElementStatus string

const (
	StatusAvailable ElementStatus = "AVAILABLE"
	StatusLocked    ElementStatus = "LOCKED"
)

// StoryElement is a piece of shared narrative content. An element is LOCKED
// iff its lock fields are set, and can be claimed by at most one report.
type StoryElement struct {
	ID               snowflake.ID  `gorm:"primaryKey"`
	Kind             ElementKind   `gorm:"type:text;not null;index"`
	Title            string        `gorm:"type:text;not null"`
	Body             string        `gorm:"type:text;not null"`
	Status           ElementStatus `gorm:"type:text;not null;default:'AVAILABLE';index"`
	IsActive         bool          `gorm:"not null;default:true"`
	LockedByReportID *snowflake.ID `gorm:"index"`
	LockedByGroupID  *snowflake.ID `gorm:""`
	LockedAt         *time.Time    `gorm:""`
	CreatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (StoryElement) TableName() string { return "story_elements" }

// RandomGrid is one random AVAILABLE pick per plan slot. Picks are advisory:
// the caller still has to claim each element and handle a lost race.
type RandomGrid struct {
	Monster   *StoryElement `json:"monster"`
	Location  *StoryElement `json:"location"`
	MainEvent *StoryElement `json:"main_event"`
	SideEvent *StoryElement `json:"side_event"`
}
