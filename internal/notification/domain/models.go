// Package domain contains the notification model and fanout contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	TypeInfo    NotificationType = "INFO"
	TypeSuccess NotificationType = "SUCCESS"
	TypeWarning NotificationType = "WARNING"
	TypeError   NotificationType = "ERROR"
)

// Notification is a fire-and-forget message to a user. The pipeline only
// ever creates rows; read-state changes happen elsewhere.
type Notification struct {
	ID          snowflake.ID      `gorm:"primaryKey"`
	UserID      snowflake.ID      `gorm:"not null;index"`
	Title       string            `gorm:"type:text;not null"`
	Message     string            `gorm:"type:text;not null"`
	Type        NotificationType  `gorm:"type:text;not null"`
	RelatedType string            `gorm:"type:text"`
	RelatedID   *snowflake.ID     `gorm:"index"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	IsRead      bool              `gorm:"not null;default:false"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "notifications" }
