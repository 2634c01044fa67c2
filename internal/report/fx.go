package report

import (
	"github.com/fablehold/fablehold/internal/report/repository"
	"github.com/fablehold/fablehold/internal/report/service"
	"go.uber.org/fx"
)

var Module = fx.Module("report",
	fx.Provide(
		repository.Provide,
		service.NewService,
	),
)
