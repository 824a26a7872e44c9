package pdf

import (
	"github.com/smallbiznis/notemart/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	return New(Store{
		Name:  cfg.AppName,
		Email: cfg.Email.From,
		URL:   cfg.PublicBaseURL,
	})
}
