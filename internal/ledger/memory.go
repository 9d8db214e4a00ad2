package ledger

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLedger keeps balances in a map. Used by tests and local runs.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int64
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]int64)}
}

// SetBalance seeds a balance directly (test setup).
func (l *MemoryLedger) SetBalance(userID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = amount
}

func (l *MemoryLedger) Debit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit amount must be > 0")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[userID] < amount {
		return ErrInsufficient
	}
	l.balances[userID] -= amount
	return nil
}

func (l *MemoryLedger) Credit(ctx context.Context, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be > 0")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] += amount
	return nil
}

func (l *MemoryLedger) Balance(ctx context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}
