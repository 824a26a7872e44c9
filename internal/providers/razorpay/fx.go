package razorpay

import (
	paymentdomain "github.com/smallbiznis/notemart/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.razorpay",
	fx.Provide(
		fx.Annotate(NewFromConfig, fx.As(new(paymentdomain.Processor))),
	),
)
