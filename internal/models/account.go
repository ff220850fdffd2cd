package models

// Asset — остаток по монете на крипто-счёте.
type Asset struct {
	AccountID string
	Symbol    string
	Quantity  float64
}

// Account — баланс и открытые позиции. Движок держит кэш аккаунта на цикл
// и перечитывает его после каждого отправленного ордера.
type Account struct {
	ID        string
	Balance   float64 // доступный фиат
	Assets    []Asset
	Positions []Position
}

// FindPosition ищет позицию по (symbol, side). nil — позиции нет.
func (a *Account) FindPosition(symbol string, side Side) *Position {
	for i := range a.Positions {
		p := &a.Positions[i]
		if p.Symbol == symbol && p.Side == side {
			return p
		}
	}
	return nil
}

// CoinBalance — остаток конкретной монеты (для фондирования coin-сделок).
func (a *Account) CoinBalance(symbol string) float64 {
	for _, as := range a.Assets {
		if as.Symbol == symbol {
			return as.Quantity
		}
	}
	return 0
}
