package models

import "time"

// Position — держимая позиция из внешнего account view. Движок позиции не
// создаёт, только читает по (symbol, side=buy).
type Position struct {
	ID        int64
	AccountID string
	Symbol    string
	Side      Side
	Quantity  float64
	Price     float64 // цена входа
	CreatedAt time.Time
}

// Age — возраст позиции относительно now (защита от повторного входа).
func (p *Position) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}
