package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	elementdomain "github.com/fablehold/fablehold/internal/element/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() elementdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, element *elementdomain.StoryElement) error {
	return db.WithContext(ctx).Create(element).Error
}

// Update writes only the editable columns. Status and the lock fields are
// owned by Claim/Release, so an edit concurrent with a claim cannot write a
// stale AVAILABLE back over a committed lock.
func (r *repo) Update(ctx context.Context, db *gorm.DB, element *elementdomain.StoryElement) error {
	return db.WithContext(ctx).
		Model(&elementdomain.StoryElement{}).
		Where("id = ?", element.ID).
		Updates(map[string]interface{}{
			"title":      element.Title,
			"body":       element.Body,
			"is_active":  element.IsActive,
			"updated_at": element.UpdatedAt,
		}).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*elementdomain.StoryElement, error) {
	var element elementdomain.StoryElement
	err := db.WithContext(ctx).First(&element, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, elementdomain.ErrNotFound
		}
		return nil, err
	}
	return &element, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter elementdomain.ListFilter) ([]elementdomain.StoryElement, error) {
	q := db.WithContext(ctx).Model(&elementdomain.StoryElement{})
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.AfterID != 0 {
		q = q.Where("id > ?", filter.AfterID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var elements []elementdomain.StoryElement
	if err := q.Order("id asc").Find(&elements).Error; err != nil {
		return nil, err
	}
	return elements, nil
}

func (r *repo) ListAvailableByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]elementdomain.StoryElement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var elements []elementdomain.StoryElement
	err := db.WithContext(ctx).
		Where("id IN ? AND status = ? AND is_active = ?", ids, elementdomain.StatusAvailable, true).
		Find(&elements).Error
	if err != nil {
		return nil, err
	}
	return elements, nil
}

func (r *repo) ListAvailableByKind(ctx context.Context, db *gorm.DB, kind elementdomain.ElementKind) ([]elementdomain.StoryElement, error) {
	var elements []elementdomain.StoryElement
	err := db.WithContext(ctx).
		Where("kind = ? AND status = ? AND is_active = ?", kind, elementdomain.StatusAvailable, true).
		Find(&elements).Error
	if err != nil {
		return nil, err
	}
	return elements, nil
}

// Claim relies on the database resolving concurrent conditional updates on
// the same row: exactly one caller observes an affected row.
func (r *repo) Claim(ctx context.Context, db *gorm.DB, id, reportID, groupID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE story_elements
		 SET status = ?, locked_by_report_id = ?, locked_by_group_id = ?, locked_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND is_active = ?`,
		elementdomain.StatusLocked,
		reportID,
		groupID,
		at,
		at,
		id,
		elementdomain.StatusAvailable,
		true,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Release(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE story_elements
		 SET status = ?, locked_by_report_id = NULL, locked_by_group_id = NULL, locked_at = NULL, updated_at = ?
		 WHERE id = ?`,
		elementdomain.StatusAvailable,
		at,
		id,
	).Error
}

func (r *repo) ReleaseIfClaimedBy(ctx context.Context, db *gorm.DB, id, reportID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE story_elements
		 SET status = ?, locked_by_report_id = NULL, locked_by_group_id = NULL, locked_at = NULL, updated_at = ?
		 WHERE id = ? AND locked_by_report_id = ?`,
		elementdomain.StatusAvailable,
		at,
		id,
		reportID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) DeleteAvailable(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM story_elements WHERE id = ? AND status = ?`,
		id,
		elementdomain.StatusAvailable,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
