package notification

import (
	"context"

	authdomain "github.com/smallbiznis/notemart/internal/auth/domain"
	contactdomain "github.com/smallbiznis/notemart/internal/contact/domain"
	orderdomain "github.com/smallbiznis/notemart/internal/order/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(New),
	fx.Provide(
		func(n *Notifier) orderdomain.Notifier { return n },
		func(n *Notifier) authdomain.Mailer { return n },
		func(n *Notifier) contactdomain.Notifier { return n },
	),
	fx.Invoke(func(lc fx.Lifecycle, n *Notifier) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return n.Wait(ctx)
			},
		})
	}),
)
