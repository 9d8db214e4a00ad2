package manager

import (
	"context"
	"fmt"
	"sync"
)

type memRepo struct {
	mu      sync.Mutex
	entries []QueueEntry
	queued  map[string]bool
}

func NewMemoryRepo() Repo {
	return &memRepo{queued: make(map[string]bool)}
}

func (m *memRepo) Enqueue(ctx context.Context, entry QueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queued[entry.UserID] {
		return fmt.Errorf("user %s already queued", entry.UserID)
	}
	m.entries = append(m.entries, entry)
	m.queued[entry.UserID] = true
	return nil
}

func (m *memRepo) Pop(ctx context.Context) (QueueEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return QueueEntry{}, false, nil
	}
	entry := m.entries[0]
	m.entries = m.entries[1:]
	delete(m.queued, entry.UserID)
	return entry, true, nil
}

func (m *memRepo) Remove(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.queued[userID] {
		return nil
	}
	for i, e := range m.entries {
		if e.UserID == userID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			break
		}
	}
	delete(m.queued, userID)
	return nil
}

func (m *memRepo) Len(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}
