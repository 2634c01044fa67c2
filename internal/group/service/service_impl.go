package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	"github.com/fablehold/fablehold/internal/clock"
	groupdomain "github.com/fablehold/fablehold/internal/group/domain"
	"github.com/fablehold/fablehold/pkg/db"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) groupdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("group.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, act actor.Actor, req groupdomain.CreateRequest) (*groupdomain.Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 120 {
		return nil, groupdomain.ErrInvalidName
	}

	now := s.clock.Now()
	group := &groupdomain.Group{
		ID:          s.genID.Generate(),
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(req.Description),
		MasterID:    act.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			// Slug collision: suffix with the id and retry once.
			group.Slug = fmt.Sprintf("%s-%s", group.Slug, group.ID.String())
			if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
				return nil, err
			}
			return group, nil
		}
		return nil, err
	}
	return group, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*groupdomain.Group, error) {
	var group groupdomain.Group
	err := s.db.WithContext(ctx).First(&group, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, groupdomain.ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (s *Service) List(ctx context.Context) ([]groupdomain.Group, error) {
	var groups []groupdomain.Group
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *Service) Update(ctx context.Context, act actor.Actor, req groupdomain.UpdateRequest) (*groupdomain.Group, error) {
	group, err := s.Get(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if group.MasterID != act.ID && !act.Can(actor.CapabilityGroupManage) {
		return nil, groupdomain.ErrForbidden
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || len(name) > 120 {
			return nil, groupdomain.ErrInvalidName
		}
		group.Name = name
	}
	if req.Description != nil {
		group.Description = strings.TrimSpace(*req.Description)
	}
	group.UpdatedAt = s.clock.Now()

	if err := s.db.WithContext(ctx).Save(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}
