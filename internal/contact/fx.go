package contact

import (
	"github.com/smallbiznis/notemart/internal/contact/repository"
	"github.com/smallbiznis/notemart/internal/contact/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contact.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
