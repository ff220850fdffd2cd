package service

import (
	"time"
)

// inTradingWindow — торговое окно для акций: будний день, между open и close
// в таймзоне биржи. Крипта под окно не попадает.
func (a *Advisor) inTradingWindow(now time.Time) bool {
	loc, err := time.LoadLocation(a.cfg.TradingHours.Location)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	open, err1 := time.Parse("15:04", a.cfg.TradingHours.Open)
	clos, err2 := time.Parse("15:04", a.cfg.TradingHours.Close)
	if err1 != nil || err2 != nil {
		return true
	}

	minutes := local.Hour()*60 + local.Minute()
	openMin := open.Hour()*60 + open.Minute()
	closMin := clos.Hour()*60 + clos.Minute()

	return minutes >= openMin && minutes < closMin
}

// watchlist — инструменты текущего цикла: акции только в окно, крипта всегда.
// В бэктесте окно не применяем, там время управляется реплеем.
func (a *Advisor) watchlist() []string {
	out := []string{}
	if a.cfg.Backtest.Test || a.inTradingWindow(a.now()) {
		out = append(out, a.cfg.EA.Symbols...)
	}
	out = append(out, a.cfg.EA.CoinSymbols...)
	return out
}
