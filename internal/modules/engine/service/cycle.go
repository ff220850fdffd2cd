package service

import (
	"context"
	"fmt"

	"expert_advisor/internal/models"
	"expert_advisor/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

// EvaluateCycle — один проход по вотчлисту. Инструменты обрабатываются
// строго последовательно: проверка баланса позднего инструмента должна
// видеть ордер раннего. Ошибка одного инструмента цикл не валит.
func (a *Advisor) EvaluateCycle(ctx context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "evaluate_cycle")
	defer span.Finish()

	if a.health != nil {
		a.health.TouchCycle(a.now())
	}

	logger.Info("[EA] предторговый анализ: старт")

	// reconcile статусов отправленных ордеров до принятия решений;
	// результат нам не важен, важно что он отработал
	if err := a.trades.UpdateStatus(ctx); err != nil {
		logger.Warn("[EA] reconcile статусов не отработал: %v", err)
	}

	if err := a.refreshAccounts(ctx); err != nil {
		logger.Warn("[EA] не удалось перечитать счёт: %v", err)
	}

	symbols := a.watchlist()
	if len(symbols) == 0 {
		logger.Info("[EA] вне торгового окна, инструментов нет")
		return
	}

	snaps, err := a.market.GetSignal(ctx, symbols, a.cfg.EA.Timeframe)
	if err != nil {
		// полный отказ поставщика: close/reopen хэндла, решений в этом цикле нет
		logger.Error("[EA] поставщик данных недоступен: %v", err)
		if rerr := a.market.Reconnect(ctx); rerr != nil {
			logger.Error("[EA] переподключение не удалось: %v", rerr)
		}
		return
	}

	bySymbol := make(map[string]*models.SnapshotSignal, len(snaps))
	for i := range snaps {
		bySymbol[snaps[i].Symbol] = &snaps[i]
	}

	for _, symbol := range symbols {
		if err := a.processSymbol(ctx, symbol, bySymbol[symbol]); err != nil {
			logger.Error("[EA] %s: %v", symbol, err)
		}
	}

	logger.Info("[EA] предторговый анализ: финиш")
}

// processSymbol — шаги 4.1 по одному инструменту: записать свежий сигнал,
// затем прогнать решение по уже записанному.
func (a *Advisor) processSymbol(ctx context.Context, symbol string, snap *models.SnapshotSignal) error {
	stored, err := a.signals.Get(ctx, symbol)
	if err != nil {
		return err
	}
	logger.Info("[EA] %s: сигнал в базе: %+v", symbol, stored)

	if snap == nil {
		return nil
	}

	if snap.Side != models.SideNone {
		if err := a.recordSignal(ctx, symbol, snap, stored); err != nil {
			return err
		}
	}

	// решение принимаем по сигналу, который лежал в базе до этого цикла:
	// свежезаписанный сигнал ждёт следующего тика
	if stored != nil {
		if err := a.decide(ctx, symbol, snap.LastPrice, snap.LastTime, stored); err != nil {
			return fmt.Errorf("decide: %w", err)
		}
	}
	return nil
}

// recordSignal пишет свежий сигнал в хранилище. Алерт шлём только если с
// прошлой записи прошло больше кулдауна: базу освежаем, дубль-алерты давим.
func (a *Advisor) recordSignal(ctx context.Context, symbol string, snap *models.SnapshotSignal, stored *models.Signal) error {
	// эквивалентный сигнал уже записан (та же сторона, тот же бар) — идемпотентность
	if stored != nil && stored.Side == snap.Side && stored.Time.Equal(snap.LastTime) {
		return nil
	}

	if a.cfg.Backtest.Test && !a.precheckSignal(symbol, snap) {
		return nil
	}

	sig := &models.Signal{
		Symbol: symbol,
		Side:   snap.Side,
		Price:  snap.LastPrice,
		Time:   snap.LastTime,
		Notes:  fmt.Sprintf("k=%.2f", snap.IndicatorValue),
	}
	a.stampBacktest(sig, snap.LastTime)

	if err := a.signals.Set(ctx, sig); err != nil {
		return err
	}

	if stored == nil || a.now().Sub(stored.UpdatedAt) > a.cfg.AlertCooldown {
		a.alerts.SendSignal(ctx, sig)
	} else {
		logger.Info("[EA] %s: дубль сигнала в кулдауне, алерт подавлен", symbol)
	}
	return nil
}
