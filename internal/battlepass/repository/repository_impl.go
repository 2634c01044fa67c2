package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() battlepassdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pass *battlepassdomain.Battlepass) error {
	return db.WithContext(ctx).Create(pass).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*battlepassdomain.Battlepass, error) {
	var pass battlepassdomain.Battlepass
	err := db.WithContext(ctx).First(&pass, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, battlepassdomain.ErrNotFound
		}
		return nil, err
	}
	return &pass, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]battlepassdomain.Battlepass, error) {
	var passes []battlepassdomain.Battlepass
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&passes).Error
	if err != nil {
		return nil, err
	}
	return passes, nil
}

func (r *repo) FindConsumable(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*battlepassdomain.Battlepass, error) {
	var pass battlepassdomain.Battlepass
	err := db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND uses_left > 0", userID, battlepassdomain.StatusActive).
		Order("expires_at IS NULL, expires_at asc, created_at asc").
		First(&pass).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, battlepassdomain.ErrNotFound
		}
		return nil, err
	}
	return &pass, nil
}

func (r *repo) DecrementUses(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE battlepasses SET uses_left = uses_left - 1, updated_at = ? WHERE id = ? AND uses_left > 0`,
		at,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	err := db.WithContext(ctx).Exec(
		`UPDATE battlepasses SET status = ?, updated_at = ? WHERE id = ? AND uses_left = 0`,
		battlepassdomain.StatusUsedUp,
		at,
		id,
	).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repo) MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE battlepasses SET status = ?, updated_at = ? WHERE id = ?`,
		battlepassdomain.StatusExpired,
		at,
		id,
	).Error
}

func (r *repo) InsertWriteoff(ctx context.Context, db *gorm.DB, writeoff *battlepassdomain.Writeoff) error {
	return db.WithContext(ctx).Create(writeoff).Error
}

func (r *repo) ListWriteoffsByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]battlepassdomain.Writeoff, error) {
	var writeoffs []battlepassdomain.Writeoff
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&writeoffs).Error
	if err != nil {
		return nil, err
	}
	return writeoffs, nil
}

func (r *repo) CountWriteoffsForReport(ctx context.Context, db *gorm.DB, reportID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&battlepassdomain.Writeoff{}).
		Where("report_id = ?", reportID).
		Count(&count).Error
	return count, err
}
