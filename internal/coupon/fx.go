package coupon

import (
	"github.com/smallbiznis/notemart/internal/coupon/repository"
	"github.com/smallbiznis/notemart/internal/coupon/service"
	"go.uber.org/fx"
)

var Module = fx.Module("coupon.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
