package migration

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/authorization"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	"github.com/fablehold/fablehold/internal/config"
	elementdomain "github.com/fablehold/fablehold/internal/element/domain"
	groupdomain "github.com/fablehold/fablehold/internal/group/domain"
	notificationdomain "github.com/fablehold/fablehold/internal/notification/domain"
	reportdomain "github.com/fablehold/fablehold/internal/report/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, authz authorization.Service) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql development setups derive the schema from
			// the models instead of the postgres migration files.
			if err := AutoMigrate(conn); err != nil {
				return err
			}
		}

		if cfg.BootstrapAdminUserID != 0 {
			return authz.GrantRole(context.Background(), snowflake.ID(cfg.BootstrapAdminUserID), authorization.RoleAdmin)
		}
		return nil
	}),
)

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&groupdomain.Group{},
		&reportdomain.Report{},
		&reportdomain.ReportParticipant{},
		&reportdomain.NextPlan{},
		&elementdomain.StoryElement{},
		&battlepassdomain.Battlepass{},
		&battlepassdomain.Writeoff{},
		&notificationdomain.Notification{},
	)
}
