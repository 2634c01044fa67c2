package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	GroupID  snowflake.ID
	MasterID snowflake.ID
	Status   ReportStatus
	AfterID  snowflake.ID
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, report *Report) error
	// UpdateEditable writes the owner-editable fields and resubmits the
	// report, guarded on status still being PENDING or REJECTED. It reports
	// false when a concurrent transition got there first.
	UpdateEditable(ctx context.Context, db *gorm.DB, report *Report) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Report, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Report, error)

	// Transition flips the status only while the report still holds `from`.
	// It reports whether the row changed; false means the report moved under
	// the caller and the transition must be treated as lost.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to ReportStatus, rejectionReason *string, at time.Time) (bool, error)

	InsertPlan(ctx context.Context, db *gorm.DB, plan *NextPlan) error
	FindPlanByReport(ctx context.Context, db *gorm.DB, reportID snowflake.ID) (*NextPlan, error)
}
