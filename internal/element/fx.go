package element

import (
	"github.com/fablehold/fablehold/internal/element/repository"
	"github.com/fablehold/fablehold/internal/element/service"
	"go.uber.org/fx"
)

var Module = fx.Module("element.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
