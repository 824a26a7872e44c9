package seed

import (
	"context"
	"strings"

	authdomain "github.com/smallbiznis/notemart/internal/auth/domain"
	"github.com/smallbiznis/notemart/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, authSvc authdomain.Service, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return EnsureAdmin(ctx, cfg, authSvc, log)
			},
		})
	}),
)

// EnsureAdmin creates the bootstrap admin account when one is configured and
// missing. An existing account keeps its password.
func EnsureAdmin(ctx context.Context, cfg config.Config, authSvc authdomain.Service, log *zap.Logger) error {
	username := strings.TrimSpace(cfg.Bootstrap.AdminUsername)
	if username == "" || cfg.Bootstrap.AdminPassword == "" {
		log.Info("bootstrap admin not configured")
		return nil
	}

	created, err := authSvc.EnsureAdmin(ctx, username, cfg.Bootstrap.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info("bootstrap admin created", zap.String("username", username))
	}
	return nil
}
