package pg

import (
	"context"
	"fmt"

	"expert_advisor/internal/models"
	"expert_advisor/pkg/db"

	"github.com/jackc/pgx/v5"
)

// TradeStore — журнал отправленных ордеров по счёту плюс reconcile
// отвисших статусов. Сам статус исполнения движок не интерпретирует.
type TradeStore struct {
	tx db.TxManager
}

func NewTradeStore(tx db.TxManager) *TradeStore {
	return &TradeStore{tx: tx}
}

// Record пишет отправленный ордер в журнал (id счёта + снимок ордера).
func (s *TradeStore) Record(ctx context.Context, accountID string, order models.Order) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("TradeStore.Record: %w", err)
		}
	}()

	var mock any
	if !order.Mocktime.IsZero() {
		mock = order.Mocktime
	}

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO trades (account_id, symbol, side, price, amount,
				event_type, trade_type, order_type, backtest, mocktime, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'submitted', now())`,
			accountID, order.Symbol, string(order.Side), order.Price, order.Amount,
			string(order.EventType), string(order.TradeType), string(order.OrderType),
			order.Backtest, mock,
		)
		return err
	})
}

// UpdateStatus дёргается раз в цикл до принятия решений: свежие сделки,
// по которым гейтвей уже отчитался, переводим из submitted. Результат
// движку не нужен, важно только что reconcile завершился.
func (s *TradeStore) UpdateStatus(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("TradeStore.UpdateStatus: %w", err)
		}
	}()

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			UPDATE trades SET status = 'filled'
			WHERE status = 'submitted'
			  AND EXISTS (
				SELECT 1 FROM positions p
				WHERE p.symbol = trades.symbol AND p.created_at >= trades.created_at
			  )`)
		return err
	})
}
