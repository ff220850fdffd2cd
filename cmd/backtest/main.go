package main

import (
	"context"
	"fmt"
	"os"

	alertsvc "expert_advisor/internal/modules/alerter/service"
	"expert_advisor/internal/modules/config"
	enginesvc "expert_advisor/internal/modules/engine/service"
	"expert_advisor/internal/modules/engine/service/pg"
	gwservice "expert_advisor/internal/modules/gateway/service"
	mdservice "expert_advisor/internal/modules/marketdata/service"
	"expert_advisor/pkg/db"
	"expert_advisor/pkg/logger"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const runConfigName = "backtest_run.yaml"

// собирает итоговый конфиг прогона из флагов/ENV поверх yaml и
// сохраняет его рядом — чтобы прогон можно было воспроизвести 1-в-1.
func assembleRunConfig() (*config.Config, int, error) {
	v := viper.New()
	v.SetEnvPrefix("EA")
	v.AutomaticEnv()

	v.SetDefault("date", "")
	v.SetDefault("bars_file", "")
	v.SetDefault("max_cycles", 10000)

	cfg, err := config.NewConfig()
	if err != nil {
		return nil, 0, errors.Wrap(err, "load base config")
	}

	cfg.Backtest.Test = true
	if d := v.GetString("date"); d != "" {
		cfg.Backtest.Date = d
	}
	if f := v.GetString("bars_file"); f != "" {
		cfg.Backtest.BarsFile = f
	}

	bs, err := yaml.Marshal(map[string]any{
		"backtest":  cfg.Backtest,
		"symbols":   cfg.EA.Symbols,
		"coins":     cfg.EA.CoinSymbols,
		"timeframe": cfg.EA.Timeframe,
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "marshal run config")
	}
	if err := os.WriteFile(runConfigName, bs, 0o644); err != nil {
		return nil, 0, errors.Wrap(err, "write run config")
	}

	return cfg, v.GetInt("max_cycles"), nil
}

func run() error {
	ctx := context.Background()

	cfg, maxCycles, err := assembleRunConfig()
	if err != nil {
		return err
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	txm := db.NewPgTxManager(pool)
	defer txm.Close()

	mdClient := mdservice.NewClient(cfg)
	replay := enginesvc.NewReplay(cfg, mdClient)

	signals := pg.NewSignalStore(txm)
	accounts := pg.NewAccountStore(txm)
	trades := pg.NewTradeStore(txm)
	alerts := alertsvc.NewAlerter(alertsvc.NewSlack(cfg), &alertsvc.Telegram{})

	advisor := enginesvc.NewAdvisor(cfg, replay, signals, accounts, trades,
		gwservice.NewClient(cfg), alerts)

	// чистое хранилище сигналов: реплей всегда стартует с нуля
	if err := signals.RemoveAll(ctx); err != nil {
		return errors.Wrap(err, "clear signals")
	}

	if maxCycles <= 0 {
		maxCycles = 10000
	}

	cycles := 0
	for !replay.Done() && cycles < maxCycles {
		advisor.EvaluateCycle(ctx)
		cycles++
	}
	logger.Info("[BACKTEST] реплей завершён за %d циклов", cycles)
	return nil
}

func main() {
	logger.SetServiceName("expert_advisor_backtest")
	if err := logger.Init(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(); err != nil {
		logger.Fatal("%v", err)
	}
}
