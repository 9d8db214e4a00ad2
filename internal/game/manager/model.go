package manager

import "time"

// QueueEntry is one player waiting for a seat, FIFO.
type QueueEntry struct {
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Handle     string    `json:"handle"`
	BuyIn      int64     `json:"buyIn"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// JoinRequest is the lobby's HTTP body for joining the seat queue.
type JoinRequest struct {
	BuyIn int64 `json:"buyIn" binding:"required"`
}

// JoinResponse reports whether the player was seated right away or queued.
type JoinResponse struct {
	Queued  bool   `json:"queued"`
	TableID string `json:"tableId,omitempty"`
}
