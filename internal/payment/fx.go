package payment

import (
	"github.com/smallbiznis/notemart/internal/payment/adapters"
	"github.com/smallbiznis/notemart/internal/payment/adapters/razorpay"
	"github.com/smallbiznis/notemart/internal/payment/repository"
	paymentservice "github.com/smallbiznis/notemart/internal/payment/service"
	"github.com/smallbiznis/notemart/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			razorpay.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewService),
	fx.Provide(webhook.NewService),
)
