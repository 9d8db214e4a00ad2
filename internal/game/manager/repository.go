package manager

import "context"

// Repo is the FIFO seat-assignment queue. Implementations must keep
// arrival order and reject duplicate entries.
type Repo interface {
	// Enqueue appends an entry; errors if the user is already queued.
	Enqueue(ctx context.Context, entry QueueEntry) error
	// Pop removes and returns the oldest entry.
	Pop(ctx context.Context) (QueueEntry, bool, error)
	// Remove deletes a user's entry (queue cancel).
	Remove(ctx context.Context, userID string) error
	// Len returns the number of waiting entries.
	Len(ctx context.Context) (int64, error)
}
