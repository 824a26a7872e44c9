package library

import (
	"github.com/smallbiznis/notemart/internal/auth/token"
	"github.com/smallbiznis/notemart/internal/library/domain"
	"github.com/smallbiznis/notemart/internal/library/repository"
	"github.com/smallbiznis/notemart/internal/library/service"
	"go.uber.org/fx"
)

var Module = fx.Module("library.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(tokens *token.Service) domain.LinkSigner { return tokens }),
	fx.Provide(service.New),
)
