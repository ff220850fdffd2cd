package alerter

import (
	"expert_advisor/internal/modules/alerter/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("alerter",
		fx.Provide(
			service.NewSlack,
			service.NewTelegram,
			service.NewAlerter,
		),
	)
}
