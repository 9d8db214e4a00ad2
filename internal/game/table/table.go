package table

import (
	"time"

	"CampusPoker/internal/game/card"
)

type Street string

const (
	StreetPreflop  Street = "preflop"
	StreetFlop     Street = "flop"
	StreetTurn     Street = "turn"
	StreetRiver    Street = "river"
	StreetShowdown Street = "showdown"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusInHand   Status = "in_hand"
	StatusShowdown Status = "showdown"
)

type SeatStatus string

const (
	SeatActive SeatStatus = "active"
	SeatFolded SeatStatus = "folded"
	SeatAllIn  SeatStatus = "all_in"
	SeatOut    SeatStatus = "out"
)

const logCapacity = 50

// Seat is chip custody for one player at the table. Seats live in a
// fixed-size indexed array on the Table, never as player->table pointers.
type Seat struct {
	Index  int
	UserID string
	Name   string
	Handle string

	Chips  int64
	Bet    int64 // this street
	Status SeatStatus

	HoleCards []card.Card
	ShowCards bool
	IsDealer  bool

	// Acted tracks "acted since the last raise"; cleared when betting reopens.
	Acted bool
	// LeavePending marks a seat that asked to leave mid-hand: it folds on
	// its next action and is removed once the hand ends.
	LeavePending bool
}

// CallAmount is what this seat must add to match the table bet.
func (s *Seat) CallAmount(currentBet int64) int64 {
	return currentBet - s.Bet
}

type Winner struct {
	SeatIndex int    `json:"seatIndex"`
	UserID    string `json:"userId"`
	Amount    int64  `json:"amount"`
	HandName  string `json:"handName,omitempty"`
}

type HandResult struct {
	Winners   []Winner  `json:"winners"`
	IsSplit   bool      `json:"isSplit"`
	Timestamp time.Time `json:"timestamp"`
}

type Table struct {
	ID       string
	MaxSeats int

	SmallBlind int64
	BigBlind   int64
	MinBuyIn   int64

	Seats     []*Seat // len == MaxSeats, nil means empty
	Community []card.Card

	Pot        int64 // collected from completed betting rounds
	CurrentBet int64
	MinRaise   int64

	DealerIndex     int
	SmallBlindIndex int
	BigBlindIndex   int
	CurrentIndex    int // -1 outside active betting

	Street Street
	Status Status

	TurnStartedAt time.Time
	TurnSeconds   int
	TurnEpoch     uint64

	LastResult *HandResult

	log []string
}

func New(id string, maxSeats int, smallBlind, bigBlind, minBuyIn int64, turnSeconds int) *Table {
	return &Table{
		ID:           id,
		MaxSeats:     maxSeats,
		SmallBlind:   smallBlind,
		BigBlind:     bigBlind,
		MinBuyIn:     minBuyIn,
		Seats:        make([]*Seat, maxSeats),
		Status:       StatusWaiting,
		CurrentIndex: -1,
		TurnSeconds:  turnSeconds,
	}
}

// SeatOf finds the seat held by a user.
func (t *Table) SeatOf(userID string) *Seat {
	for _, s := range t.Seats {
		if s != nil && s.UserID == userID {
			return s
		}
	}
	return nil
}

// FreeSeat returns the lowest open seat index, or -1 when full.
func (t *Table) FreeSeat() int {
	for i, s := range t.Seats {
		if s == nil {
			return i
		}
	}
	return -1
}

// Occupied counts seated players.
func (t *Table) Occupied() int {
	n := 0
	for _, s := range t.Seats {
		if s != nil {
			n++
		}
	}
	return n
}

// Funded counts seats able to play the next hand.
func (t *Table) Funded() int {
	n := 0
	for _, s := range t.Seats {
		if s != nil && s.Chips > 0 {
			n++
		}
	}
	return n
}

// NextSeat walks clockwise from (after) the given index and returns the
// first seat accepted by keep, or nil after a full lap.
func (t *Table) NextSeat(from int, keep func(*Seat) bool) *Seat {
	n := t.MaxSeats
	for i := 1; i <= n; i++ {
		s := t.Seats[(from+i)%n]
		if s != nil && keep(s) {
			return s
		}
	}
	return nil
}

// ChipsInPlay sums every seat stack, street bet and the pot.
func (t *Table) ChipsInPlay() int64 {
	sum := t.Pot
	for _, s := range t.Seats {
		if s != nil {
			sum += s.Chips + s.Bet
		}
	}
	return sum
}

// AddLog appends a line to the bounded action log ring.
func (t *Table) AddLog(line string) {
	t.log = append(t.log, line)
	if len(t.log) > logCapacity {
		t.log = t.log[len(t.log)-logCapacity:]
	}
}

// Log returns a copy of the action log, oldest first.
func (t *Table) Log() []string {
	out := make([]string, len(t.log))
	copy(out, t.log)
	return out
}
