package auth

import (
	"github.com/smallbiznis/notemart/internal/auth/repository"
	"github.com/smallbiznis/notemart/internal/auth/service"
	"github.com/smallbiznis/notemart/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(token.New),
	fx.Provide(service.New),
)
