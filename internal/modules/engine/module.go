package engine

import (
	"context"

	alertsvc "expert_advisor/internal/modules/alerter/service"
	"expert_advisor/internal/modules/config"
	"expert_advisor/internal/modules/engine/service"
	"expert_advisor/internal/modules/engine/service/pg"
	gwservice "expert_advisor/internal/modules/gateway/service"
	mdservice "expert_advisor/internal/modules/marketdata/service"
	"expert_advisor/pkg/db"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			func(m *db.PgTxManager) db.TxManager { return m },
			pg.NewSignalStore,
			pg.NewAccountStore,
			pg.NewTradeStore,

			// лайв или реплей — контракт снапшота один и тот же
			func(cfg *config.Config, c *mdservice.Client) service.MarketSnapshot {
				if cfg.Backtest.Test {
					return service.NewReplay(cfg, c)
				}
				return c
			},

			// адаптеры конкретных сервисов к портам движка
			func(s *pg.SignalStore) service.SignalStore { return s },
			func(s *pg.AccountStore) service.AccountView { return s },
			func(s *pg.TradeStore) service.TradeLog { return s },
			func(c *gwservice.Client) service.OrderGateway { return c },
			func(a *alertsvc.Alerter) service.Alerter { return a },

			service.NewAdvisor,
		),
		fx.Invoke(
			func(lc fx.Lifecycle, a *service.Advisor, ctx context.Context) {
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						return a.Start(ctx)
					},
					OnStop: func(_ context.Context) error {
						a.Stop()
						return nil
					},
				})
			},
		),
	)
}
