package pg

import (
	"context"
	"errors"
	"fmt"

	"expert_advisor/internal/models"
	"expert_advisor/pkg/db"

	"github.com/jackc/pgx/v5"
)

// AccountStore — read-only вью счёта: баланс, монеты, позиции.
// Движок только читает; записи аккаунта держит внешняя система.
type AccountStore struct {
	tx db.TxManager
}

func NewAccountStore(tx db.TxManager) *AccountStore {
	return &AccountStore{tx: tx}
}

// Get собирает аккаунт целиком. nil — счёт не заведён.
func (s *AccountStore) Get(ctx context.Context, accountID string) (acc *models.Account, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("AccountStore.Get: %w", err)
		}
	}()

	acc = &models.Account{ID: accountID}
	row := s.tx.Conn().QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1`, accountID)
	if err = row.Scan(&acc.Balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := s.tx.Conn().Query(ctx, `
		SELECT symbol, quantity FROM assets WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		a := models.Asset{AccountID: accountID}
		if err = rows.Scan(&a.Symbol, &a.Quantity); err != nil {
			return nil, err
		}
		acc.Assets = append(acc.Assets, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	prows, err := s.tx.Conn().Query(ctx, `
		SELECT id, symbol, side, quantity, price, created_at
		FROM positions
		WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		p := models.Position{AccountID: accountID}
		var side string
		if err = prows.Scan(&p.ID, &p.Symbol, &side, &p.Quantity, &p.Price, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Side = models.Side(side)
		acc.Positions = append(acc.Positions, p)
	}
	if err = prows.Err(); err != nil {
		return nil, err
	}

	return acc, nil
}
