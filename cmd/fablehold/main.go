package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fablehold/fablehold/internal/authorization"
	"github.com/fablehold/fablehold/internal/battlepass"
	"github.com/fablehold/fablehold/internal/clock"
	"github.com/fablehold/fablehold/internal/config"
	"github.com/fablehold/fablehold/internal/element"
	"github.com/fablehold/fablehold/internal/group"
	"github.com/fablehold/fablehold/internal/migration"
	"github.com/fablehold/fablehold/internal/notification"
	"github.com/fablehold/fablehold/internal/observability"
	"github.com/fablehold/fablehold/internal/ratelimit"
	"github.com/fablehold/fablehold/internal/report"
	"github.com/fablehold/fablehold/internal/server"
	"github.com/fablehold/fablehold/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		authorization.Module,
		migration.Module,

		// Pipeline domains
		element.Module,
		battlepass.Module,
		notification.Module,
		ratelimit.Module,
		report.Module,
		group.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
