package battlepass

import (
	"github.com/fablehold/fablehold/internal/battlepass/repository"
	"github.com/fablehold/fablehold/internal/battlepass/service"
	"go.uber.org/fx"
)

var Module = fx.Module("battlepass.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
