package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/clock"
	notificationdomain "github.com/fablehold/fablehold/internal/notification/domain"
	obsmetrics "github.com/fablehold/fablehold/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) notificationdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("notification.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Broadcast(ctx context.Context, in notificationdomain.BroadcastInput) error {
	ownerTitle, ownerMessage, participantTitle, participantMessage, kind := copyFor(in)

	now := s.clock.Now()
	rows := make([]notificationdomain.Notification, 0, 1+len(in.ParticipantIDs))
	reportID := in.ReportID
	rows = append(rows, notificationdomain.Notification{
		ID:          s.genID.Generate(),
		UserID:      in.OwnerID,
		Title:       ownerTitle,
		Message:     ownerMessage,
		Type:        kind,
		RelatedType: "report",
		RelatedID:   &reportID,
		CreatedAt:   now,
	})
	for _, userID := range in.ParticipantIDs {
		if userID == in.OwnerID {
			continue
		}
		rows = append(rows, notificationdomain.Notification{
			ID:          s.genID.Generate(),
			UserID:      userID,
			Title:       participantTitle,
			Message:     participantMessage,
			Type:        kind,
			RelatedType: "report",
			RelatedID:   &reportID,
			CreatedAt:   now,
		})
	}

	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}
	s.obsMetrics.RecordNotifications(len(rows))
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID snowflake.ID) ([]notificationdomain.Notification, error) {
	if userID == 0 {
		return nil, notificationdomain.ErrInvalidUser
	}
	var rows []notificationdomain.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(100).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func copyFor(in notificationdomain.BroadcastInput) (ownerTitle, ownerMessage, participantTitle, participantMessage string, kind notificationdomain.NotificationType) {
	switch in.Event {
	case notificationdomain.EventApproved:
		return "Report approved",
			"Your session report was approved.",
			"Session report approved",
			"A session report you took part in was approved.",
			notificationdomain.TypeSuccess
	case notificationdomain.EventRejected:
		return "Report rejected",
			fmt.Sprintf("Your session report was rejected: %s", in.Reason),
			"Session report rejected",
			"A session report you took part in was sent back for edits.",
			notificationdomain.TypeWarning
	case notificationdomain.EventCancelled:
		return "Report cancelled",
			"Your approved session report was cancelled by an administrator.",
			"Session report cancelled",
			"A session report you took part in was cancelled.",
			notificationdomain.TypeWarning
	default:
		return "Report updated",
			"Your session report status changed.",
			"Session report updated",
			"A session report you took part in changed status.",
			notificationdomain.TypeInfo
	}
}
