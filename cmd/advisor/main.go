package main

import (
	"context"
	"log"

	"expert_advisor/internal/modules/alerter"
	"expert_advisor/internal/modules/config"
	"expert_advisor/internal/modules/engine"
	engsvc "expert_advisor/internal/modules/engine/service"
	"expert_advisor/internal/modules/gateway"
	"expert_advisor/internal/modules/health"
	healthsvc "expert_advisor/internal/modules/health/service"
	"expert_advisor/internal/modules/marketdata"
	mdsvc "expert_advisor/internal/modules/marketdata/service"
	"expert_advisor/internal/modules/postgres"
	"expert_advisor/pkg/logger"
	"expert_advisor/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	logger.SetServiceName("expert_advisor")
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		marketdata.Module(),
		gateway.Module(),
		alerter.Module(),
		engine.Module(),
		health.Module(),
		fx.Invoke(
			// health-состояние кормят движок и WS-стрим котировок
			func(adv *engsvc.Advisor, md *mdsvc.Client, st *healthsvc.State) {
				adv.SetHeartbeat(st)
				md.SetStreamState(st.SetStreamConnected)
			},
		),
		fx.Invoke(
			func(cfg *config.Config) {
				if cfg.Jaeger.Host == "" {
					return
				}
				tracing.SetServiceName("expert_advisor")
				if _, _, err := tracing.InitTracer(tracing.Config{
					Host: cfg.Jaeger.Host,
					Port: cfg.Jaeger.Port,
				}); err != nil {
					logger.Warn("[MAIN] jaeger недоступен: %v", err)
				}
			},
		),
	)
	app.Run()
}
