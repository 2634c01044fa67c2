package group

import (
	"github.com/fablehold/fablehold/internal/group/service"
	"go.uber.org/fx"
)

var Module = fx.Module("group",
	fx.Provide(
		service.NewService,
	),
)
