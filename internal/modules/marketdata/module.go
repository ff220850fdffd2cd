package marketdata

import (
	"context"

	"expert_advisor/internal/modules/marketdata/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			service.NewClient, // func(*config.Config) *service.Client
		),
		fx.Invoke(
			func(lc fx.Lifecycle, c *service.Client, ctx context.Context) {
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						return c.Init(ctx)
					},
					OnStop: func(_ context.Context) error {
						return c.Close()
					},
				})
			},
		),
	)
}
