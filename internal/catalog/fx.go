package catalog

import (
	"github.com/smallbiznis/notemart/internal/catalog/repository"
	"github.com/smallbiznis/notemart/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
