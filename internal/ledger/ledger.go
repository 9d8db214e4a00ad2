package ledger

import (
	"context"
	"errors"
)

// Ledger is the campus coin balance shared across every table. Debit and
// credit must be atomic per user; the engine debits at buy-in and rebuy
// and credits the remaining stack when a seat is given up.
type Ledger interface {
	// Debit removes amount from the user's balance. Returns ErrInsufficient
	// without mutating anything when the balance does not cover it.
	Debit(ctx context.Context, userID string, amount int64) error
	// Credit adds amount to the user's balance.
	Credit(ctx context.Context, userID string, amount int64) error
	// Balance reports the current balance.
	Balance(ctx context.Context, userID string) (int64, error)
}

var ErrInsufficient = errors.New("insufficient balance")
