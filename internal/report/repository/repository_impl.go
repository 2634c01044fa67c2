package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	reportdomain "github.com/fablehold/fablehold/internal/report/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() reportdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, report *reportdomain.Report) error {
	return db.WithContext(ctx).Create(report).Error
}

// UpdateEditable persists the owner-editable fields and resubmits the report.
// The status guard makes the write race-safe against concurrent moderation: a
// transition committed after the caller's read leaves zero rows affected
// instead of being overwritten.
func (r *repo) UpdateEditable(ctx context.Context, db *gorm.DB, report *reportdomain.Report) (bool, error) {
	res := db.WithContext(ctx).
		Model(&reportdomain.Report{}).
		Where("id = ? AND status IN ?", report.ID, []reportdomain.ReportStatus{
			reportdomain.StatusPending,
			reportdomain.StatusRejected,
		}).
		Updates(map[string]interface{}{
			"description":      report.Description,
			"highlights":       report.Highlights,
			"status":           reportdomain.StatusPending,
			"rejection_reason": nil,
			"updated_at":       report.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*reportdomain.Report, error) {
	var report reportdomain.Report
	err := db.WithContext(ctx).
		Preload("Participants").
		First(&report, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reportdomain.ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter reportdomain.ListFilter) ([]reportdomain.Report, error) {
	q := db.WithContext(ctx).Model(&reportdomain.Report{}).Preload("Participants")
	if filter.GroupID != 0 {
		q = q.Where("group_id = ?", filter.GroupID)
	}
	if filter.MasterID != 0 {
		q = q.Where("master_id = ?", filter.MasterID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.AfterID != 0 {
		q = q.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var reports []reportdomain.Report
	if err := q.Order("id asc").Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// Transition is the status compare-and-swap: concurrent moderation of the
// same report resolves to exactly one affected row.
func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to reportdomain.ReportStatus, rejectionReason *string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE reports
		 SET status = ?, rejection_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		rejectionReason,
		at,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertPlan(ctx context.Context, db *gorm.DB, plan *reportdomain.NextPlan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repo) FindPlanByReport(ctx context.Context, db *gorm.DB, reportID snowflake.ID) (*reportdomain.NextPlan, error) {
	var plan reportdomain.NextPlan
	err := db.WithContext(ctx).First(&plan, "report_id = ?", reportID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reportdomain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}
