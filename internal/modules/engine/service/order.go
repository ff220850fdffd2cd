package service

import (
	"context"
	"time"

	"expert_advisor/internal/models"
	"expert_advisor/pkg/logger"
)

// placeOrder — единственная точка сабмита. Ордер уходит ровно один раз,
// ретраев нет. Сигнал по умолчанию снимаем только после успешного сабмита;
// clear_on_order_err=true включает старое поведение "снимать всегда".
func (a *Advisor) placeOrder(ctx context.Context, accountID string, stored *models.Signal, order models.Order) error {
	err := a.gateway.Submit(ctx, order)
	if err != nil {
		logger.Warn("[EA] %s: отправка ордера не удалась: %v", order.Symbol, err)
		if !a.cfg.ClearOnOrderErr {
			// сигнал остаётся в базе, возможность пересмотрим на следующем цикле
			return nil
		}
	} else {
		a.alerts.SendOrder(ctx, order)
		if rerr := a.trades.Record(ctx, accountID, order); rerr != nil {
			logger.Warn("[EA] %s: журнал сделок: %v", order.Symbol, rerr)
		}
	}

	if rerr := a.signals.Remove(ctx, stored.ID); rerr != nil {
		return rerr
	}

	// обновляем кэш счёта: следующий инструмент цикла считает баланс
	// уже с учётом этого ордера
	if rerr := a.refreshAccounts(ctx); rerr != nil {
		logger.Warn("[EA] %s: не удалось перечитать счёт после ордера: %v", order.Symbol, rerr)
	}
	return nil
}

// stampBacktest помечает сигнал реплейными метаданными.
func (a *Advisor) stampBacktest(sig *models.Signal, t time.Time) {
	if !a.cfg.Backtest.Test {
		return
	}
	sig.Backtest = "1"
	sig.Mocktime = t
}

// stampOrderBacktest — то же для ордера: mocktime вместо wall-clock.
func (a *Advisor) stampOrderBacktest(order *models.Order, t time.Time) {
	if !a.cfg.Backtest.Test {
		return
	}
	order.Backtest = "1"
	order.Mocktime = t
}
