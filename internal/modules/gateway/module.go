package gateway

import (
	"expert_advisor/internal/modules/gateway/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("gateway",
		fx.Provide(
			service.NewClient,
		),
	)
}
