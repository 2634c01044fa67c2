package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/actor"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	"github.com/fablehold/fablehold/internal/clock"
	obsmetrics "github.com/fablehold/fablehold/internal/observability/metrics"
	"github.com/fablehold/fablehold/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       battlepassdomain.Repository
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       battlepassdomain.Repository
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) battlepassdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("battlepass.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Grant(ctx context.Context, act actor.Actor, req battlepassdomain.GrantRequest) (*battlepassdomain.Battlepass, error) {
	if !act.Can(actor.CapabilityBattlepassManage) {
		return nil, battlepassdomain.ErrForbidden
	}
	if req.UserID == 0 {
		return nil, battlepassdomain.ErrInvalidUser
	}
	if req.Uses <= 0 {
		return nil, battlepassdomain.ErrInvalidUses
	}

	now := s.clock.Now()
	pass := &battlepassdomain.Battlepass{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		UsesTotal: req.Uses,
		UsesLeft:  req.Uses,
		Status:    battlepassdomain.StatusActive,
		ExpiresAt: req.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, pass); err != nil {
		return nil, err
	}
	return pass, nil
}

func (s *Service) Expire(ctx context.Context, act actor.Actor, id snowflake.ID) error {
	if !act.Can(actor.CapabilityBattlepassManage) {
		return battlepassdomain.ErrForbidden
	}
	if _, err := s.repo.FindByID(ctx, s.db, id); err != nil {
		return err
	}
	return s.repo.MarkExpired(ctx, s.db, id, s.clock.Now())
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID) ([]battlepassdomain.Battlepass, error) {
	if userID == 0 {
		return nil, battlepassdomain.ErrInvalidUser
	}
	return s.repo.ListByUser(ctx, s.db, userID)
}

func (s *Service) ListWriteoffs(ctx context.Context, userID snowflake.ID) ([]battlepassdomain.Writeoff, error) {
	if userID == 0 {
		return nil, battlepassdomain.ErrInvalidUser
	}
	return s.repo.ListWriteoffsByUser(ctx, s.db, userID)
}

// ConsumeForReport charges one credit inside its own transaction. The
// writeoff's unique (user, report) key is the idempotency mechanism: a
// duplicate key rolls the decrement back and reports AlreadyRedeemed.
func (s *Service) ConsumeForReport(ctx context.Context, userID, reportID snowflake.ID, sessionID *snowflake.ID) (battlepassdomain.ConsumeOutcome, error) {
	outcome := battlepassdomain.ConsumeOutcome{UserID: userID}
	if userID == 0 || reportID == 0 {
		return outcome, battlepassdomain.ErrInvalidInput
	}

	var alreadyRedeemed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		pass, err := s.repo.FindConsumable(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, battlepassdomain.ErrNotFound) {
				// No credit available. Not an error: the approval proceeds
				// and this participant simply is not charged.
				return nil
			}
			return err
		}

		decremented, err := s.repo.DecrementUses(ctx, tx, pass.ID, s.clock.Now())
		if err != nil {
			return err
		}
		if !decremented {
			// Lost a concurrent race for the last use; same as no credit.
			return nil
		}

		writeoff := &battlepassdomain.Writeoff{
			ID:           s.genID.Generate(),
			UserID:       userID,
			BattlepassID: pass.ID,
			ReportID:     reportID,
			SessionID:    sessionID,
			CreatedAt:    s.clock.Now(),
		}
		if err := s.repo.InsertWriteoff(ctx, tx, writeoff); err != nil {
			if db.IsDuplicateKeyErr(err) {
				alreadyRedeemed = true
				// Roll the decrement back; the earlier writeoff already paid
				// for this report.
				return err
			}
			return err
		}

		passID := pass.ID
		outcome.Consumed = true
		outcome.BattlepassID = &passID
		return nil
	})

	if err != nil {
		if alreadyRedeemed {
			outcome.OK = true
			outcome.AlreadyRedeemed = true
			s.obsMetrics.RecordWriteoff("already_redeemed")
			return outcome, nil
		}
		s.obsMetrics.RecordWriteoff("error")
		return outcome, err
	}

	outcome.OK = true
	if outcome.Consumed {
		s.obsMetrics.RecordWriteoff("consumed")
	} else {
		s.obsMetrics.RecordWriteoff("no_credit")
	}
	return outcome, nil
}
