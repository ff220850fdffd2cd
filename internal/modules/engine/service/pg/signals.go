package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"expert_advisor/internal/models"
	"expert_advisor/pkg/db"

	"github.com/jackc/pgx/v5"
)

// SignalStore — durable-хранилище сигналов. Инвариант "не больше одного
// открытого сигнала на (symbol, side)" держится уникальным ключом и апсертом.
type SignalStore struct {
	tx db.TxManager
}

func NewSignalStore(tx db.TxManager) *SignalStore {
	return &SignalStore{tx: tx}
}

// Get возвращает сохранённый сигнал по инструменту, nil если его нет.
func (s *SignalStore) Get(ctx context.Context, symbol string) (sig *models.Signal, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SignalStore.Get: %w", err)
		}
	}()

	row := s.tx.Conn().QueryRow(ctx, `
		SELECT id, symbol, side, price, time, notes, backtest, mocktime, created_at, updated_at
		FROM signals
		WHERE symbol = $1
		ORDER BY updated_at DESC
		LIMIT 1`, symbol)

	sig, err = scanSignal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return sig, err
}

// Set апсертит сигнал по (symbol, side) и проставляет store-assigned ID.
func (s *SignalStore) Set(ctx context.Context, sig *models.Signal) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SignalStore.Set: %w", err)
		}
	}()

	var mock any
	if !sig.Mocktime.IsZero() {
		mock = sig.Mocktime
	}

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctxTx, `
			INSERT INTO signals (symbol, side, price, time, notes, backtest, mocktime, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			ON CONFLICT (symbol, side) DO UPDATE SET
				price = EXCLUDED.price,
				time = EXCLUDED.time,
				notes = EXCLUDED.notes,
				backtest = EXCLUDED.backtest,
				mocktime = EXCLUDED.mocktime,
				updated_at = now()
			RETURNING id, created_at, updated_at`,
			sig.Symbol, string(sig.Side), sig.Price, sig.Time, sig.Notes, sig.Backtest, mock,
		).Scan(&sig.ID, &sig.CreatedAt, &sig.UpdatedAt)
	})
}

// Remove снимает сигнал по ID (движок отработал или перекрыл его).
func (s *SignalStore) Remove(ctx context.Context, id int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SignalStore.Remove: %w", err)
		}
	}()

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `DELETE FROM signals WHERE id = $1`, id)
		return err
	})
}

// RemoveAll чистит хранилище (используется перед реплеем бэктеста).
func (s *SignalStore) RemoveAll(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("SignalStore.RemoveAll: %w", err)
		}
	}()

	return s.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `DELETE FROM signals`)
		return err
	})
}

func scanSignal(row pgx.Row) (*models.Signal, error) {
	var (
		sig  models.Signal
		side string
		mock sql.NullTime
	)
	err := row.Scan(&sig.ID, &sig.Symbol, &side, &sig.Price, &sig.Time,
		&sig.Notes, &sig.Backtest, &mock, &sig.CreatedAt, &sig.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sig.Side = models.Side(side)
	if mock.Valid {
		sig.Mocktime = mock.Time
	}
	return &sig, nil
}
