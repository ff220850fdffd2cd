package service

import (
	"context"
	"time"

	"expert_advisor/internal/helper"
	"expert_advisor/internal/models"
	"expert_advisor/pkg/logger"
)

// Трейлинг-триггер, одна симметричная функция на обе стороны:
// сигнал "едет" за рынком, пока тот идёт в невыгодную сторону, и стреляет
// только на развороте. Так шумный индикатор превращается в исполнение
// по подтверждению.

// reversed — рынок развернулся: для buy цена оттолкнулась вверх от
// референса, для sell — вниз.
func reversed(side models.Side, ref, price float64) bool {
	if side == models.SideBuy {
		return ref < price
	}
	return ref > price
}

// chasing — рынок продолжает идти в невыгодную сторону, референс едет за ним.
func chasing(side models.Side, ref, price float64) bool {
	if side == models.SideBuy {
		return ref > price
	}
	return ref < price
}

// decide — переход по записанному сигналу: no-op / update / clear-and-order.
func (a *Advisor) decide(ctx context.Context, symbol string, price float64, t time.Time, stored *models.Signal) error {
	logger.Info("[EA] %s: обработка сигнала %s, ref=%.4f px=%.4f", symbol, stored.Side, stored.Price, price)

	if price <= 0 {
		// нет цены в снапшоте — доброкачественный no-op
		logger.Warn("[EA] %s: пустая цена в снапшоте, решение пропущено", symbol)
		return nil
	}

	switch {
	case reversed(stored.Side, stored.Price, price):
		return a.fire(ctx, symbol, price, t, stored)
	case chasing(stored.Side, stored.Price, price):
		return a.refreshSignal(ctx, stored, price, t)
	default:
		// цена ровно на референсе — состояние не меняем
		return nil
	}
}

// fire — разворот подтверждён, проверяем сторонние гейты и отправляем ордер.
func (a *Advisor) fire(ctx context.Context, symbol string, price float64, t time.Time, stored *models.Signal) error {
	class := a.assetClass(symbol)
	account := a.fundingAccount(class)
	if account == nil {
		logger.Warn("[EA] %s: счёт не загружен, ордер не отправляем", symbol)
		return nil
	}

	if stored.Side == models.SideBuy {
		return a.fireBuy(ctx, symbol, price, t, stored, class, account)
	}
	return a.fireSell(ctx, symbol, price, t, stored, class, account)
}

func (a *Advisor) fireBuy(
	ctx context.Context,
	symbol string,
	price float64,
	t time.Time,
	stored *models.Signal,
	class models.AssetClass,
	account *models.Account,
) error {
	logger.Info("[EA] %s: цена оттолкнулась вверх (ref=%.4f < px=%.4f), покупаем", symbol, stored.Price, price)

	// защита от повторного входа: свежая позиция той же стороны
	if pos := account.FindPosition(symbol, models.SideBuy); pos != nil {
		if pos.Age(a.now()) < a.cfg.ReentryCooldown {
			logger.Warn("[EA] %s: позиция моложе %s, повторный вход заблокирован",
				symbol, a.cfg.ReentryCooldown)
			return nil
		}
	}

	amount := a.orderAmount(symbol, class)
	limitPx := helper.RoundDownToTick(price, a.cfg.PriceTick(symbol))
	cost := limitPx*amount + a.cfg.OrderFee

	balance := a.fundingBalance(symbol, class, account)
	if balance < 0 || balance < cost {
		logger.Warn("[EA] %s: баланс %.4f не покрывает ордер %.4f, не покупаем", symbol, balance, cost)
		return nil // сигнал оставляем, пересмотрим на следующем цикле
	}

	order := models.BuildOrder(a.cfg.OrderTemplate(), symbol, models.OrderSideBuy, limitPx, amount)
	a.stampOrderBacktest(&order, t)

	return a.placeOrder(ctx, account.ID, stored, order)
}

func (a *Advisor) fireSell(
	ctx context.Context,
	symbol string,
	price float64,
	t time.Time,
	stored *models.Signal,
	class models.AssetClass,
	account *models.Account,
) error {
	// продаём только то, что по данным счёта реально держим
	pos := account.FindPosition(symbol, models.SideBuy)
	if pos == nil {
		logger.Warn("[EA] %s: позиции нет, не продаём", symbol)
		return nil
	}
	if pos.Price <= 0 {
		logger.Error("[EA] %s: у позиции пустая цена входа", symbol)
		return nil
	}

	// profit-гейт: для крипты достаточно любого плюса, для остального —
	// запас больше брейк-ивен буфера (комиссии брокера)
	headroom := price - pos.Price
	var pass bool
	if class == models.AssetCrypto {
		pass = headroom > 0
	} else {
		pass = headroom > a.cfg.ProfitMargin
	}
	logger.Info("[EA] %s: разворот вниз (ref=%.4f > px=%.4f), запас %.4f, гейт=%v",
		symbol, stored.Price, price, headroom, pass)
	if !pass {
		return nil
	}

	amount := a.orderAmount(symbol, class)
	limitPx := helper.RoundUpToTick(price, a.cfg.PriceTick(symbol))
	order := models.BuildOrder(a.cfg.OrderTemplate(), symbol, models.OrderSideBuyClose, limitPx, amount)
	a.stampOrderBacktest(&order, t)

	return a.placeOrder(ctx, account.ID, stored, order)
}

// refreshSignal — рынок всё ещё идёт против нас: референс едет за ценой.
func (a *Advisor) refreshSignal(ctx context.Context, stored *models.Signal, price float64, t time.Time) error {
	logger.Info("[EA] %s: обновляем референс сигнала %.4f -> %.4f", stored.Symbol, stored.Price, price)
	stored.Price = price
	stored.Time = t
	a.stampBacktest(stored, t)
	return a.signals.Set(ctx, stored)
}

// orderAmount — размер: у крипто-пар свой торговый юнит, иначе болванка.
func (a *Advisor) orderAmount(symbol string, class models.AssetClass) float64 {
	if class == models.AssetCrypto {
		return a.cfg.CoinUnit(symbol)
	}
	return a.cfg.Order.Amount
}

// fundingBalance — чем платим: фиат или монета-квота (cash-vs-coin флаг).
func (a *Advisor) fundingBalance(symbol string, class models.AssetClass, account *models.Account) float64 {
	if class == models.AssetCrypto && models.TradeAssetType(a.cfg.TradeAsset) == models.TradeAssetCoin {
		return account.CoinBalance(quoteAsset(symbol))
	}
	return account.Balance
}

// quoteAsset — монета-квота пары вида "eth_btc" -> "btc".
func quoteAsset(symbol string) string {
	for i := len(symbol) - 1; i >= 0; i-- {
		if symbol[i] == '_' || symbol[i] == '/' {
			return symbol[i+1:]
		}
	}
	return symbol
}
