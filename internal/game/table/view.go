package table

import (
	"time"

	"CampusPoker/internal/game/card"
)

// SeatView is one seat as a given viewer may see it. Cards are omitted
// unless they belong to the viewer or the seat has revealed them.
type SeatView struct {
	SeatIndex int         `json:"seatIndex"`
	UserID    string      `json:"userId"`
	Name      string      `json:"name"`
	Handle    string      `json:"handle"`
	Chips     int64       `json:"chips"`
	Bet       int64       `json:"bet"`
	Status    SeatStatus  `json:"status"`
	IsDealer  bool        `json:"isDealer"`
	Cards     []card.Card `json:"cards,omitempty"`
	ShowCards bool        `json:"showCards,omitempty"`
}

// Actions is the legal-action set for the viewer, present only when the
// viewer is the current player.
type Actions struct {
	CanCheck   bool  `json:"canCheck"`
	CanCall    bool  `json:"canCall"`
	CanBet     bool  `json:"canBet"`
	CanRaise   bool  `json:"canRaise"`
	CallAmount int64 `json:"callAmount"`
	MinBet     int64 `json:"minBet"`
	MinRaiseTo int64 `json:"minRaiseTo"`
	MaxTo      int64 `json:"maxTo"`
}

type Snapshot struct {
	TableID             string      `json:"tableId"`
	MaxSeats            int         `json:"maxSeats"`
	Status              Status      `json:"status"`
	Street              Street      `json:"street,omitempty"`
	Pot                 int64       `json:"pot"`
	Community           []card.Card `json:"community"`
	Seats               []SeatView  `json:"seats"`
	CurrentPlayerIndex  *int        `json:"currentPlayerIndex"`
	CurrentBet          int64       `json:"currentBet"`
	MinRaise            int64       `json:"minRaise"`
	SmallBlindIndex     int         `json:"smallBlindIndex"`
	BigBlindIndex       int         `json:"bigBlindIndex"`
	YouSeatIndex        *int        `json:"youSeatIndex"`
	TurnStartedAt       time.Time   `json:"turnStartedAt"`
	TurnDurationSeconds int         `json:"turnDurationSeconds"`
	ServerTime          time.Time   `json:"serverTime"`
	LastHandResult      *HandResult `json:"lastHandResult,omitempty"`
	Actions             *Actions    `json:"actions,omitempty"`
	Log                 []string    `json:"log"`
}

// Project serializes the table for one viewer: own hole cards always, other
// seats' only once revealed, and the actions block only for the player to act.
func Project(t *Table, viewerID string, now time.Time) Snapshot {
	snap := Snapshot{
		TableID:             t.ID,
		MaxSeats:            t.MaxSeats,
		Status:              t.Status,
		Street:              t.Street,
		Pot:                 potTotal(t),
		Community:           append([]card.Card{}, t.Community...),
		CurrentBet:          t.CurrentBet,
		MinRaise:            t.MinRaise,
		SmallBlindIndex:     t.SmallBlindIndex,
		BigBlindIndex:       t.BigBlindIndex,
		TurnStartedAt:       t.TurnStartedAt,
		TurnDurationSeconds: t.TurnSeconds,
		ServerTime:          now,
		LastHandResult:      t.LastResult,
		Log:                 t.Log(),
	}

	if t.CurrentIndex >= 0 {
		idx := t.CurrentIndex
		snap.CurrentPlayerIndex = &idx
	}

	for _, s := range t.Seats {
		if s == nil {
			continue
		}
		sv := SeatView{
			SeatIndex: s.Index,
			UserID:    s.UserID,
			Name:      s.Name,
			Handle:    s.Handle,
			Chips:     s.Chips,
			Bet:       s.Bet,
			Status:    s.Status,
			IsDealer:  s.IsDealer,
			ShowCards: s.ShowCards,
		}
		if s.UserID == viewerID || s.ShowCards {
			sv.Cards = append([]card.Card{}, s.HoleCards...)
		}
		if s.UserID == viewerID {
			idx := s.Index
			snap.YouSeatIndex = &idx
		}
		snap.Seats = append(snap.Seats, sv)
	}

	if viewer := t.SeatOf(viewerID); viewer != nil &&
		t.CurrentIndex == viewer.Index && t.Status == StatusInHand {
		snap.Actions = legalActions(t, viewer)
	}

	return snap
}

func potTotal(t *Table) int64 {
	total := t.Pot
	for _, s := range t.Seats {
		if s != nil {
			total += s.Bet
		}
	}
	return total
}

func legalActions(t *Table, s *Seat) *Actions {
	call := s.CallAmount(t.CurrentBet)
	a := &Actions{
		CanCheck: call == 0,
		CanCall:  call > 0,
		CanBet:   t.CurrentBet == 0 && s.Chips > 0,
		MinBet:   1,
	}
	if a.CanCall {
		a.CallAmount = call
		if a.CallAmount > s.Chips {
			a.CallAmount = s.Chips
		}
	}
	if t.CurrentBet > 0 && s.Chips+s.Bet > t.CurrentBet {
		a.CanRaise = true
		a.MinRaiseTo = t.CurrentBet + t.MinRaise
		a.MaxTo = s.Chips + s.Bet
		if a.MinRaiseTo > a.MaxTo {
			// an under-sized all-in raise is still available
			a.MinRaiseTo = a.MaxTo
		}
	}
	if a.CanBet {
		a.MaxTo = s.Chips
	}
	return a
}
