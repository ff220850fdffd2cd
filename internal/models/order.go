package models

import "time"

type EventType string

const (
	EventOrder EventType = "order"
)

type TradeType string

const (
	TradeMargin TradeType = "margin"
	TradeSpot   TradeType = "spot"
)

type OrderType string

const (
	OrderLimit  OrderType = "limit"
	OrderMarket OrderType = "market"
)

type OrderSide string

const (
	OrderSideBuy      OrderSide = "buy"
	OrderSideSell     OrderSide = "sell"
	OrderSideBuyClose OrderSide = "buyclose" // закрытие лонга
)

// OrderTemplate — дефолты ордера из конфига, из которых движок собирает
// конкретный ордер.
type OrderTemplate struct {
	EventType EventType
	TradeType TradeType
	OrderType OrderType
	Side      OrderSide
	Amount    float64
}

// Order — намерение сделки. После сабмита не мутируется; статус исполнения
// отслеживает внешний реконсайлер, не движок.
type Order struct {
	EventType EventType `json:"eventType"`
	TradeType TradeType `json:"tradeType"`
	OrderType OrderType `json:"orderType"`
	Symbol    string    `json:"symbol"`
	Side      OrderSide `json:"side"`
	Price     float64   `json:"price"`
	Amount    float64   `json:"amount"`

	Backtest string    `json:"backtest,omitempty"`
	Mocktime time.Time `json:"mocktime,omitempty"`
}

// BuildOrder собирает ордер из болванки. Бэктест-метки проставляет движок.
func BuildOrder(tpl OrderTemplate, symbol string, side OrderSide, price, amount float64) Order {
	return Order{
		EventType: tpl.EventType,
		TradeType: tpl.TradeType,
		OrderType: tpl.OrderType,
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Amount:    amount,
	}
}
