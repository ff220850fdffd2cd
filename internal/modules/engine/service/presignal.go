package service

import (
	"expert_advisor/internal/models"
	"expert_advisor/pkg/logger"
)

// precheckSignal — расхождение бэктеста с лайвом: на реплее сигнал даже не
// записываем, если он заведомо неисполним. Покупка требует баланса на
// ориентировочный ордер, продажа — держимой позиции. В лайве такой фильтр
// не стоит: там запись сигнала дешёвая, а гейты отрабатывают при решении.
func (a *Advisor) precheckSignal(symbol string, snap *models.SnapshotSignal) bool {
	class := a.assetClass(symbol)
	account := a.fundingAccount(class)
	if account == nil {
		return true
	}

	switch snap.Side {
	case models.SideBuy:
		cost := snap.LastPrice*a.orderAmount(symbol, class) + a.cfg.OrderFee
		if balance := a.fundingBalance(symbol, class, account); balance < cost {
			logger.Warn("[EA] %s: баланс %.4f < ордер %.4f, сигнал не записываем", symbol, balance, cost)
			return false
		}
	case models.SideSell:
		if account.FindPosition(symbol, models.SideBuy) == nil {
			logger.Warn("[EA] %s: позиции нет, sell-сигнал не записываем", symbol)
			return false
		}
	}
	return true
}
