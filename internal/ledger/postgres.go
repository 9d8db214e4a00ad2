package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresLedger stores balances in the campus coin table.
//
//	CREATE TABLE coin_balances (
//	    user_id TEXT PRIMARY KEY,
//	    balance BIGINT NOT NULL CHECK (balance >= 0)
//	);
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Debit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be > 0")
	}
	// Guarded update keeps the debit atomic: no row changes unless the
	// balance covers it.
	res, err := l.db.ExecContext(ctx,
		`UPDATE coin_balances SET balance = balance - $1 WHERE user_id = $2 AND balance >= $1`,
		amount, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficient
	}
	return nil
}

func (l *PostgresLedger) Credit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be > 0")
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO coin_balances (user_id, balance) VALUES ($2, $1)
		 ON CONFLICT (user_id) DO UPDATE SET balance = coin_balances.balance + $1`,
		amount, userID)
	return err
}

func (l *PostgresLedger) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := l.db.QueryRowContext(ctx,
		`SELECT balance FROM coin_balances WHERE user_id = $1`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}
