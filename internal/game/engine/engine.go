package engine

import (
	"errors"
	"sync"
	"time"

	"CampusPoker/internal/game/dealer"
	"CampusPoker/internal/game/pot"
	"CampusPoker/internal/game/table"
	"CampusPoker/internal/identity"
	"CampusPoker/internal/ledger"
	"CampusPoker/internal/websocket"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

var (
	ErrNotSeated     = errors.New("not seated at this table")
	ErrOutOfTurn     = errors.New("not your turn")
	ErrTableFull     = errors.New("table is full")
	ErrAlreadySeated = errors.New("already seated")
)

// delay before dealing once two funded seats exist, for the first hand
// and between hands alike
const interHandDelay = 3 * time.Second

// Engine owns one table. All mutation goes through a single goroutine
// consuming the request channel, so no action for the same table is ever
// applied concurrently and no locking is needed inside the state machine.
type Engine struct {
	Table *table.Table

	// OnSeatRemoved, when set, is called from the engine goroutine after
	// a seat is freed. Receivers must not call back into the engine
	// synchronously.
	OnSeatRemoved func(userID string, occupiedLeft int)

	hub    websocket.HubInterface
	led    ledger.Ledger
	dealer *dealer.Dealer
	clock  quartz.Clock
	logger *log.Logger

	pots *pot.Manager

	// chips at stake when the hand started, for the conservation check
	// and for restoring stacks if the check ever fails
	handChips     int64
	preHandStacks map[int]int64

	viewers map[string]bool

	requests chan request
	quit     chan struct{}
	stopOnce sync.Once
}

type request struct {
	fn    func() error
	reply chan error
}

func New(t *table.Table, hub websocket.HubInterface, led ledger.Ledger, clock quartz.Clock, seed int64, logger *log.Logger) *Engine {
	return &Engine{
		Table:    t,
		hub:      hub,
		led:      led,
		dealer:   dealer.NewDealer(seed),
		clock:    clock,
		logger:   logger.WithPrefix("engine").With("table", t.ID),
		pots:     pot.NewManager(),
		viewers:  make(map[string]bool),
		requests: make(chan request, 32),
		quit:     make(chan struct{}),
	}
}

// Run consumes requests until Stop. Must run in its own goroutine.
func (e *Engine) Run() {
	for {
		select {
		case req := <-e.requests:
			err := req.fn()
			if req.reply != nil {
				req.reply <- err
			}
		case <-e.quit:
			return
		}
	}
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.quit) })
}

var errTableClosed = errors.New("table closed")

// do runs fn on the engine goroutine and waits for its result. A request
// still in the buffer when the engine stops is abandoned, so the wait for
// the reply must also watch quit.
func (e *Engine) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case e.requests <- request{fn: fn, reply: reply}:
	case <-e.quit:
		return errTableClosed
	}
	select {
	case err := <-reply:
		return err
	case <-e.quit:
		return errTableClosed
	}
}

// post enqueues fn without waiting. Used by timers, which must not block.
func (e *Engine) post(fn func() error) {
	select {
	case e.requests <- request{fn: fn}:
	case <-e.quit:
	}
}

// ---------------------------------------------------------------
// public surface (all serialized through the request loop)
// ---------------------------------------------------------------

// Sit debits the buy-in and seats the player. Mid-hand joiners sit out
// until the next deal.
func (e *Engine) Sit(p identity.Profile, buyIn int64) error {
	return e.do(func() error { return e.sit(p, buyIn) })
}

// Act applies a betting action for the player.
func (e *Engine) Act(userID string, action string, amount int64) error {
	return e.do(func() error { return e.applyPlayerAction(userID, action, amount) })
}

// Rebuy re-debits the ledger for a busted seat between hands.
func (e *Engine) Rebuy(userID string, amount int64) error {
	return e.do(func() error { return e.rebuy(userID, amount) })
}

// Leave removes the seat, or marks it to fold out if a hand is running.
func (e *Engine) Leave(userID string) error {
	return e.do(func() error { return e.leave(userID) })
}

// Show flips the post-hand voluntary reveal flag.
func (e *Engine) Show(userID string) error {
	return e.do(func() error { return e.show(userID) })
}

// Watch subscribes an observer to table broadcasts.
func (e *Engine) Watch(userID string) {
	_ = e.do(func() error {
		e.viewers[userID] = true
		e.sendSnapshot(userID)
		return nil
	})
}

func (e *Engine) Unwatch(userID string) {
	_ = e.do(func() error {
		delete(e.viewers, userID)
		return nil
	})
}

// Snapshot projects the table for one viewer, consistent with command order.
func (e *Engine) Snapshot(viewerID string) table.Snapshot {
	var snap table.Snapshot
	_ = e.do(func() error {
		snap = table.Project(e.Table, viewerID, e.clock.Now())
		return nil
	})
	return snap
}

// OpenSeats reports how many seats are free.
func (e *Engine) OpenSeats() int {
	n := 0
	_ = e.do(func() error {
		n = e.Table.MaxSeats - e.Table.Occupied()
		return nil
	})
	return n
}

// HasPlayer reports whether the user holds a seat.
func (e *Engine) HasPlayer(userID string) bool {
	found := false
	_ = e.do(func() error {
		found = e.Table.SeatOf(userID) != nil
		return nil
	})
	return found
}

// ---------------------------------------------------------------
// broadcast
// ---------------------------------------------------------------

// broadcast pushes a fresh per-viewer snapshot to every seat and observer.
// Called only after a state transition has fully committed.
func (e *Engine) broadcast() {
	now := e.clock.Now()
	seen := make(map[string]bool, len(e.viewers)+e.Table.MaxSeats)
	for _, s := range e.Table.Seats {
		if s != nil {
			seen[s.UserID] = true
		}
	}
	for v := range e.viewers {
		seen[v] = true
	}
	for userID := range seen {
		e.hub.SendToPlayer(userID, websocket.OutgoingMessage{
			Event: "table_state",
			Data:  table.Project(e.Table, userID, now),
		})
	}
}

func (e *Engine) sendSnapshot(userID string) {
	e.hub.SendToPlayer(userID, websocket.OutgoingMessage{
		Event: "table_state",
		Data:  table.Project(e.Table, userID, e.clock.Now()),
	})
}

// ---------------------------------------------------------------
// turn scheduler
// ---------------------------------------------------------------

// setTurn hands the action to a seat, stamps the turn clock and arms the
// timeout. The epoch captured by the timer makes cancellation implicit: any
// action that advances the turn bumps the epoch and the stale timer fires
// into nothing.
func (e *Engine) setTurn(seatIndex int) {
	t := e.Table
	t.CurrentIndex = seatIndex
	t.TurnStartedAt = e.clock.Now()
	t.TurnEpoch++

	epoch := t.TurnEpoch
	d := time.Duration(t.TurnSeconds) * time.Second
	e.clock.AfterFunc(d, func() {
		e.post(func() error { return e.onTurnTimeout(epoch) })
	})
}

// clearTurn ends active betting and invalidates any in-flight timer.
func (e *Engine) clearTurn() {
	e.Table.CurrentIndex = -1
	e.Table.TurnEpoch++
}

// onTurnTimeout synthesizes the default action when the captured epoch is
// still live: check when there is nothing to call, otherwise fold.
func (e *Engine) onTurnTimeout(epoch uint64) error {
	t := e.Table
	if epoch != t.TurnEpoch || t.CurrentIndex < 0 || t.Status != table.StatusInHand {
		return nil // stale timer
	}
	seat := t.Seats[t.CurrentIndex]
	if seat == nil {
		return nil
	}
	action := "fold"
	if seat.CallAmount(t.CurrentBet) == 0 {
		action = "check"
	}
	e.logger.Info("turn timed out", "seat", seat.Index, "default", action)
	t.AddLog(seat.Name + " timed out")
	return e.applyPlayerAction(seat.UserID, action, 0)
}
