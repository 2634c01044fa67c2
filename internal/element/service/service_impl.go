package service

import (
	"context"
	"math/rand"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	"github.com/fablehold/fablehold/internal/clock"
	elementdomain "github.com/fablehold/fablehold/internal/element/domain"
	obsmetrics "github.com/fablehold/fablehold/internal/observability/metrics"
	"github.com/fablehold/fablehold/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxTitleLen = 200

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       elementdomain.Repository
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       elementdomain.Repository
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) elementdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("element.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, act actor.Actor, req elementdomain.CreateRequest) (*elementdomain.StoryElement, error) {
	if !act.Can(actor.CapabilityElementManage) {
		return nil, elementdomain.ErrForbidden
	}
	if !req.Kind.Valid() {
		return nil, elementdomain.ErrInvalidKind
	}
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > maxTitleLen {
		return nil, elementdomain.ErrInvalidTitle
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, elementdomain.ErrInvalidBody
	}

	now := s.clock.Now()
	element := &elementdomain.StoryElement{
		ID:        s.genID.Generate(),
		Kind:      req.Kind,
		Title:     title,
		Body:      body,
		Status:    elementdomain.StatusAvailable,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, element); err != nil {
		return nil, err
	}
	return element, nil
}

func (s *Service) Update(ctx context.Context, act actor.Actor, req elementdomain.UpdateRequest) (*elementdomain.StoryElement, error) {
	if !act.Can(actor.CapabilityElementManage) {
		return nil, elementdomain.ErrForbidden
	}

	element, err := s.repo.FindByID(ctx, s.db, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" || len(title) > maxTitleLen {
			return nil, elementdomain.ErrInvalidTitle
		}
		element.Title = title
	}
	if req.Body != nil {
		body := strings.TrimSpace(*req.Body)
		if body == "" {
			return nil, elementdomain.ErrInvalidBody
		}
		element.Body = body
	}
	if req.IsActive != nil {
		element.IsActive = *req.IsActive
	}
	element.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, element); err != nil {
		return nil, err
	}
	// Status and lock fields may have moved since the read; return the row
	// as written.
	return s.repo.FindByID(ctx, s.db, req.ID)
}

func (s *Service) Delete(ctx context.Context, act actor.Actor, id snowflake.ID) error {
	if !act.Can(actor.CapabilityElementManage) {
		return elementdomain.ErrForbidden
	}

	deleted, err := s.repo.DeleteAvailable(ctx, s.db, id)
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}

	// Zero rows: either the element is gone or it is LOCKED.
	if _, err := s.repo.FindByID(ctx, s.db, id); err != nil {
		return err
	}
	return elementdomain.ErrElementLocked
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*elementdomain.StoryElement, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) List(ctx context.Context, req elementdomain.ListRequest) ([]elementdomain.StoryElement, *pagination.PageInfo, error) {
	limit := req.PageSize
	if limit <= 0 || limit > 250 {
		limit = 20
	}

	filter := elementdomain.ListFilter{
		Kind:   req.Kind,
		Status: req.Status,
		Limit:  limit + 1,
	}
	// Malformed tokens fall back to the first page.
	if req.PageToken != "" {
		if cursor, err := pagination.DecodeCursor(req.PageToken); err == nil {
			if afterID, err := snowflake.ParseString(cursor.ID); err == nil {
				filter.AfterID = afterID
			}
		}
	}

	elements, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, nil, err
	}

	elements, pageInfo := pagination.BuildCursorPageInfo(elements, limit, func(e elementdomain.StoryElement) string {
		token, _ := pagination.EncodeCursor(pagination.Cursor{ID: e.ID.String()})
		return token
	})
	return elements, pageInfo, nil
}

func (s *Service) Claim(ctx context.Context, elementID, reportID, groupID snowflake.ID) (bool, error) {
	claimed, err := s.repo.Claim(ctx, s.db, elementID, reportID, groupID, s.clock.Now())
	if err != nil {
		return false, err
	}
	if claimed {
		s.obsMetrics.RecordElementClaim("claimed")
	} else {
		s.obsMetrics.RecordElementClaim("lost")
	}
	return claimed, nil
}

func (s *Service) ReleaseClaim(ctx context.Context, elementID, reportID snowflake.ID) error {
	released, err := s.repo.ReleaseIfClaimedBy(ctx, s.db, elementID, reportID, s.clock.Now())
	if err != nil {
		return err
	}
	if !released {
		s.log.Warn("release claim skipped, element not held by report",
			zap.String("element_id", elementID.String()),
			zap.String("report_id", reportID.String()),
		)
	}
	return nil
}

func (s *Service) Release(ctx context.Context, act actor.Actor, elementID snowflake.ID) error {
	if !act.Can(actor.CapabilityElementManage) {
		return elementdomain.ErrForbidden
	}
	if _, err := s.repo.FindByID(ctx, s.db, elementID); err != nil {
		return err
	}
	return s.repo.Release(ctx, s.db, elementID, s.clock.Now())
}

func (s *Service) CheckAvailability(ctx context.Context, ids []snowflake.ID) ([]snowflake.ID, error) {
	elements, err := s.repo.ListAvailableByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	available := make([]snowflake.ID, 0, len(elements))
	for _, e := range elements {
		available = append(available, e.ID)
	}
	return available, nil
}

// PickRandomAvailable selects uniformly in memory rather than via ORDER BY
// random(), which is not portable across the supported drivers. The catalog
// is administrator-curated and small.
func (s *Service) PickRandomAvailable(ctx context.Context, kind elementdomain.ElementKind) (*elementdomain.StoryElement, error) {
	if !kind.Valid() {
		return nil, elementdomain.ErrInvalidKind
	}
	elements, err := s.repo.ListAvailableByKind(ctx, s.db, kind)
	if err != nil {
		return nil, err
	}
	if len(elements) == 0 {
		return nil, elementdomain.ErrNoneAvailable
	}
	pick := elements[rand.Intn(len(elements))]
	return &pick, nil
}

func (s *Service) PickRandomGrid(ctx context.Context) (*elementdomain.RandomGrid, error) {
	monster, err := s.PickRandomAvailable(ctx, elementdomain.KindMonster)
	if err != nil {
		return nil, err
	}
	location, err := s.PickRandomAvailable(ctx, elementdomain.KindLocationText)
	if err != nil {
		return nil, err
	}

	// Main and side event must be distinct texts.
	events, err := s.repo.ListAvailableByKind(ctx, s.db, elementdomain.KindEventText)
	if err != nil {
		return nil, err
	}
	if len(events) < 2 {
		return nil, elementdomain.ErrNoneAvailable
	}
	first := rand.Intn(len(events))
	second := rand.Intn(len(events) - 1)
	if second >= first {
		second++
	}

	return &elementdomain.RandomGrid{
		Monster:   monster,
		Location:  location,
		MainEvent: &events[first],
		SideEvent: &events[second],
	}, nil
}
