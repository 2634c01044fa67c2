package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/authorization"
	battlepassdomain "github.com/fablehold/fablehold/internal/battlepass/domain"
	"github.com/fablehold/fablehold/internal/config"
	elementdomain "github.com/fablehold/fablehold/internal/element/domain"
	groupdomain "github.com/fablehold/fablehold/internal/group/domain"
	notificationdomain "github.com/fablehold/fablehold/internal/notification/domain"
	"github.com/fablehold/fablehold/internal/observability"
	obsmiddleware "github.com/fablehold/fablehold/internal/observability/logger"
	obsmetrics "github.com/fablehold/fablehold/internal/observability/metrics"
	obstracing "github.com/fablehold/fablehold/internal/observability/tracing"
	reportdomain "github.com/fablehold/fablehold/internal/report/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	genID           *snowflake.Node
	authzSvc        authorization.Service
	reportSvc       reportdomain.Service
	elementSvc      elementdomain.Service
	battlepassSvc   battlepassdomain.Service
	notificationSvc notificationdomain.Service
	groupSvc        groupdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	ReportSvc       reportdomain.Service
	ElementSvc      elementdomain.Service
	BattlepassSvc   battlepassdomain.Service
	NotificationSvc notificationdomain.Service
	GroupSvc        groupdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		reportSvc:       p.ReportSvc,
		elementSvc:      p.ElementSvc,
		battlepassSvc:   p.BattlepassSvc,
		notificationSvc: p.NotificationSvc,
		groupSvc:        p.GroupSvc,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.ActorRequired())

	// -------- Reports --------
	api.GET("/reports", s.ListReports)
	api.POST("/reports", s.SubmitReport)
	api.GET("/reports/:id", s.GetReportByID)
	api.PATCH("/reports/:id", s.UpdateReport)
	api.POST("/reports/:id/moderate", s.ModerateReport)
	api.POST("/reports/:id/cancel", s.CancelReport)
	api.GET("/reports/:id/plan", s.GetReportPlan)
	api.POST("/reports/:id/plan", s.AttachReportPlan)

	// -------- Story elements --------
	api.GET("/elements", s.ListElements)
	api.GET("/elements/:id", s.GetElementByID)
	api.POST("/elements/availability", s.CheckElementAvailability)
	api.GET("/elements/random", s.PickRandomElement)
	api.GET("/elements/random-grid", s.PickRandomGrid)

	// -------- Battlepasses --------
	api.GET("/battlepasses", s.ListMyBattlepasses)
	api.GET("/writeoffs", s.ListMyWriteoffs)

	// -------- Notifications --------
	api.GET("/notifications", s.ListMyNotifications)

	// -------- Groups --------
	api.GET("/groups", s.ListGroups)
	api.POST("/groups", s.CreateGroup)
	api.GET("/groups/:id", s.GetGroupByID)
	api.PATCH("/groups/:id", s.UpdateGroup)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.ActorRequired())

	// Capability checks live in the services; routes only group the surface.
	admin.POST("/elements", s.CreateElement)
	admin.PATCH("/elements/:id", s.UpdateElement)
	admin.DELETE("/elements/:id", s.DeleteElement)
	admin.POST("/elements/:id/release", s.ReleaseElement)

	admin.POST("/battlepasses", s.GrantBattlepass)
	admin.POST("/battlepasses/:id/expire", s.ExpireBattlepass)
	admin.GET("/battlepasses/users/:userId", s.ListUserBattlepasses)
	admin.GET("/writeoffs/users/:userId", s.ListUserWriteoffs)

	admin.POST("/roles/grant", s.GrantRole)
	admin.POST("/roles/revoke", s.RevokeRole)
}
