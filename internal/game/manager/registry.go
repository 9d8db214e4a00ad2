package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"CampusPoker/internal/game/engine"
	"CampusPoker/internal/game/table"
	"CampusPoker/internal/identity"
	"CampusPoker/internal/ledger"
	"CampusPoker/internal/websocket"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
)

var (
	ErrBuyInTooSmall = errors.New("buy-in below table minimum")
	ErrNotAtTable    = errors.New("not seated at any table")
)

// Config carries the single table tier the registry runs.
type Config struct {
	MaxSeats    int
	SmallBlind  int64
	BigBlind    int64
	MinBuyIn    int64
	TurnSeconds int
}

// Registry owns every live table engine plus the seat queue. Tables are
// created when two queued players can fill one and torn down when the
// last seat empties. Incoming socket traffic is serialized through one
// dispatcher goroutine so commands apply in arrival order.
type Registry struct {
	cfg    Config
	queue  Repo
	hub    websocket.HubInterface
	led    ledger.Ledger
	clock  quartz.Clock
	logger *log.Logger

	mu          sync.RWMutex
	engines     map[string]*engine.Engine
	playerTable map[string]string

	inbox chan websocket.IncomingMessage
	quit  chan struct{}
	seed  func() int64
}

func NewRegistry(cfg Config, queue Repo, hub websocket.HubInterface, led ledger.Ledger, clock quartz.Clock, logger *log.Logger) *Registry {
	return &Registry{
		cfg:         cfg,
		queue:       queue,
		hub:         hub,
		led:         led,
		clock:       clock,
		logger:      logger.WithPrefix("registry"),
		engines:     make(map[string]*engine.Engine),
		playerTable: make(map[string]string),
		inbox:       make(chan websocket.IncomingMessage, 256),
		quit:        make(chan struct{}),
		seed:        func() int64 { return time.Now().UnixNano() },
	}
}

// Start launches the dispatcher. Wire HandleIncoming as the hub's
// OnIncoming callback before calling this.
func (r *Registry) Start() {
	go func() {
		for {
			select {
			case msg := <-r.inbox:
				r.dispatch(msg)
			case <-r.quit:
				return
			}
		}
	}()
}

func (r *Registry) Stop() {
	close(r.quit)
	r.mu.Lock()
	engines := make([]*engine.Engine, 0, len(r.engines))
	for _, eng := range r.engines {
		engines = append(engines, eng)
	}
	r.engines = make(map[string]*engine.Engine)
	r.playerTable = make(map[string]string)
	r.mu.Unlock()
	for _, eng := range engines {
		eng.Stop()
	}
}

// HandleIncoming hands a socket message to the dispatcher without
// blocking the hub loop. Messages are dropped when the inbox is full.
func (r *Registry) HandleIncoming(msg websocket.IncomingMessage) {
	select {
	case r.inbox <- msg:
	default:
		r.logger.Warn("dispatch inbox full, dropping message", "user", msg.From.UserID)
	}
}

func (r *Registry) dispatch(msg websocket.IncomingMessage) {
	userID := msg.From.UserID
	if userID == "" {
		return
	}
	if msg.Action != "" {
		eng := r.engineOf(userID)
		if eng == nil {
			r.sendError(userID, ErrNotAtTable)
			return
		}
		if err := eng.Act(userID, msg.Action, msg.Amount); err != nil {
			// rejected actions never touch table state, reply privately
			r.sendError(userID, err)
		}
		return
	}
	switch msg.Cmd {
	case "queue":
		queued, err := r.JoinQueue(context.Background(), msg.From, msg.Amount)
		if err != nil {
			r.sendError(userID, err)
			return
		}
		if queued {
			r.hub.SendToPlayer(userID, websocket.OutgoingMessage{Event: "queued", Data: nil})
		}
	case "rebuy":
		eng := r.engineOf(userID)
		if eng == nil {
			r.sendError(userID, ErrNotAtTable)
			return
		}
		if err := eng.Rebuy(userID, msg.Amount); err != nil {
			r.sendError(userID, err)
		}
	case "leave":
		if err := r.Leave(context.Background(), userID); err != nil {
			r.sendError(userID, err)
		}
	case "show":
		eng := r.engineOf(userID)
		if eng == nil {
			r.sendError(userID, ErrNotAtTable)
			return
		}
		if err := eng.Show(userID); err != nil {
			r.sendError(userID, err)
		}
	default:
		r.sendError(userID, fmt.Errorf("unknown command %q", msg.Cmd))
	}
}

func (r *Registry) sendError(userID string, err error) {
	r.hub.SendToPlayer(userID, websocket.OutgoingMessage{Event: "error", Data: err.Error()})
}

// JoinQueue validates the buy-in against the coin ledger and enqueues
// the player, then runs a match pass. Returns true when the player is
// still waiting, false when a seat was found immediately.
func (r *Registry) JoinQueue(ctx context.Context, p identity.Profile, buyIn int64) (bool, error) {
	if buyIn < r.cfg.MinBuyIn {
		return false, ErrBuyInTooSmall
	}
	if r.engineOf(p.UserID) != nil {
		return false, engine.ErrAlreadySeated
	}
	balance, err := r.led.Balance(ctx, p.UserID)
	if err != nil {
		return false, err
	}
	if balance < buyIn {
		return false, ledger.ErrInsufficient
	}
	entry := QueueEntry{
		UserID:     p.UserID,
		Name:       p.Name,
		Handle:     p.Handle,
		BuyIn:      buyIn,
		EnqueuedAt: r.clock.Now(),
	}
	if err := r.queue.Enqueue(ctx, entry); err != nil {
		return false, err
	}
	r.tryMatch(ctx)
	return r.engineOf(p.UserID) == nil, nil
}

// Leave removes the player from their table, or cancels their queue
// entry if they are still waiting.
func (r *Registry) Leave(ctx context.Context, userID string) error {
	if eng := r.engineOf(userID); eng != nil {
		return eng.Leave(userID)
	}
	return r.queue.Remove(ctx, userID)
}

// TableOf returns the engine the player is seated at, or nil.
func (r *Registry) TableOf(userID string) *engine.Engine {
	return r.engineOf(userID)
}

// Engine returns the engine for a table id, or nil.
func (r *Registry) Engine(tableID string) *engine.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engines[tableID]
}

// Tables returns the ids of every live table.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.engines))
	for id := range r.engines {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) engineOf(userID string) *engine.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.playerTable[userID]
	if !ok {
		return nil
	}
	return r.engines[id]
}

// tryMatch seats queued players oldest first. A new table is only
// created when at least two players are waiting; a single waiter stays
// queued until an existing table frees a seat.
func (r *Registry) tryMatch(ctx context.Context) {
	for {
		waiting, err := r.queue.Len(ctx)
		if err != nil {
			r.logger.Error("queue length check failed", "err", err)
			return
		}
		if waiting == 0 {
			return
		}
		eng := r.engineWithFreeSeat()
		if eng == nil {
			if waiting < 2 {
				return
			}
			eng = r.createTable()
		}
		entry, ok, err := r.queue.Pop(ctx)
		if err != nil {
			r.logger.Error("queue pop failed", "err", err)
			return
		}
		if !ok {
			return
		}
		p := identity.Profile{UserID: entry.UserID, Name: entry.Name, Handle: entry.Handle}
		if err := eng.Sit(p, entry.BuyIn); err != nil {
			// balance may have drained while queued; tell them and move on
			r.sendError(entry.UserID, err)
			continue
		}
		r.mu.Lock()
		r.playerTable[entry.UserID] = eng.Table.ID
		r.mu.Unlock()
		r.hub.SendToPlayer(entry.UserID, websocket.OutgoingMessage{
			Event: "seated",
			Data:  map[string]any{"tableId": eng.Table.ID},
		})
	}
}

func (r *Registry) engineWithFreeSeat() *engine.Engine {
	r.mu.RLock()
	engines := make([]*engine.Engine, 0, len(r.engines))
	for _, eng := range r.engines {
		engines = append(engines, eng)
	}
	r.mu.RUnlock()
	for _, eng := range engines {
		if eng.OpenSeats() > 0 {
			return eng
		}
	}
	return nil
}

func (r *Registry) createTable() *engine.Engine {
	id := uuid.New().String()
	t := table.New(id, r.cfg.MaxSeats, r.cfg.SmallBlind, r.cfg.BigBlind, r.cfg.MinBuyIn, r.cfg.TurnSeconds)
	eng := engine.New(t, r.hub, r.led, r.clock, r.seed(), r.logger)
	eng.OnSeatRemoved = func(userID string, occupiedLeft int) {
		r.onSeatRemoved(eng, userID, occupiedLeft)
	}
	r.mu.Lock()
	r.engines[id] = eng
	r.mu.Unlock()
	go eng.Run()
	r.logger.Info("table created", "table", id)
	return eng
}

// onSeatRemoved fires on the engine goroutine, so all follow-up engine
// work must happen asynchronously.
func (r *Registry) onSeatRemoved(eng *engine.Engine, userID string, occupiedLeft int) {
	var stop *engine.Engine
	r.mu.Lock()
	delete(r.playerTable, userID)
	if occupiedLeft == 0 {
		delete(r.engines, eng.Table.ID)
		stop = eng
	}
	r.mu.Unlock()
	if stop != nil {
		r.logger.Info("table closed", "table", eng.Table.ID)
		go stop.Stop()
	}
	// a freed seat may unblock a waiter
	go r.tryMatch(context.Background())
}
