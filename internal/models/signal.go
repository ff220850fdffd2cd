package models

import "time"

// Side как в движке: "buy"/"sell" или пустая строка (нет сигнала).
type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// AssetClass определяет правила торговли по инструменту:
// акции гоняем только в торговое окно, крипту — круглосуточно.
type AssetClass string

const (
	AssetStock  AssetClass = "stock"
	AssetCrypto AssetClass = "crypto"
)

// TradeAssetType — чем фондируется покупка крипты: фиатом или монетой.
type TradeAssetType string

const (
	TradeAssetCash TradeAssetType = "cash"
	TradeAssetCoin TradeAssetType = "coin"
)

// Signal — записанная торговая возможность, ещё не превращённая в позицию.
// Референсная цена "едет" за рынком, пока тот идёт в невыгодную сторону.
type Signal struct {
	ID     int64
	Symbol string
	Side   Side
	// Референсная цена и время (цена на момент записи/последнего обновления)
	Price float64
	Time  time.Time
	Notes string // например "k=12.35"

	// Метаданные бэктеста
	Backtest string // "1" при реплее, иначе пусто
	Mocktime time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsBacktest — сигнал записан в режиме реплея.
func (s *Signal) IsBacktest() bool { return s.Backtest == "1" }

// SnapshotSignal — свежепосчитанный сигнал от поставщика данных
// (индикатор считается снаружи, мы получаем только результат).
type SnapshotSignal struct {
	Symbol         string
	Side           Side
	IndicatorValue float64
	LastPrice      float64
	LastTime       time.Time
}
