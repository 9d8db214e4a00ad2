package engine

import (
	"fmt"

	"CampusPoker/internal/game/table"
)

// applyPlayerAction validates and applies one betting action. Player
// commands and scheduler timeouts both land here, on the engine goroutine.
func (e *Engine) applyPlayerAction(userID string, action string, amount int64) error {
	t := e.Table
	seat := t.SeatOf(userID)
	if seat == nil {
		return ErrNotSeated
	}
	if t.Status != table.StatusInHand || t.CurrentIndex != seat.Index {
		return ErrOutOfTurn
	}

	call := seat.CallAmount(t.CurrentBet)

	switch action {
	case "fold":
		e.foldSeat(seat)
		t.AddLog(fmt.Sprintf("%s folds", seat.Name))

	case "check":
		if call != 0 {
			return fmt.Errorf("cannot check facing a bet of %d", call)
		}
		seat.Acted = true
		t.AddLog(fmt.Sprintf("%s checks", seat.Name))

	case "call":
		if call <= 0 {
			return fmt.Errorf("nothing to call")
		}
		pay := call
		if pay > seat.Chips {
			pay = seat.Chips // short call, seat goes all-in
		}
		e.placeBet(seat, pay)
		seat.Acted = true
		t.AddLog(fmt.Sprintf("%s calls %d", seat.Name, pay))

	case "bet":
		if t.CurrentBet != 0 {
			return fmt.Errorf("a bet is already open, raise instead")
		}
		if amount <= 0 || amount > seat.Chips {
			return fmt.Errorf("bet must be between 1 and %d", seat.Chips)
		}
		e.placeBet(seat, amount)
		t.CurrentBet = amount
		t.MinRaise = amount
		e.reopenBetting(seat)
		seat.Acted = true
		t.AddLog(fmt.Sprintf("%s bets %d", seat.Name, amount))

	case "raise":
		if t.CurrentBet == 0 {
			return fmt.Errorf("no bet to raise, bet instead")
		}
		// the acted flag only survives to a seat's next turn when an
		// under-sized all-in failed to reopen the betting: call or fold
		if seat.Acted {
			return fmt.Errorf("betting was not reopened, call or fold")
		}
		maxTo := seat.Chips + seat.Bet
		if amount > maxTo {
			return fmt.Errorf("raise to %d exceeds stack", amount)
		}
		if amount <= t.CurrentBet {
			return fmt.Errorf("raise must exceed the current bet of %d", t.CurrentBet)
		}
		full := amount >= t.CurrentBet+t.MinRaise
		if !full && amount != maxTo {
			return fmt.Errorf("minimum raise is to %d", t.CurrentBet+t.MinRaise)
		}
		e.placeBet(seat, amount-seat.Bet)
		if full {
			// a full raise reopens the action for everyone behind
			t.MinRaise = amount - t.CurrentBet
			e.reopenBetting(seat)
		}
		// an under-sized all-in raise does not reopen action for seats
		// that already matched the prior bet
		t.CurrentBet = amount
		seat.Acted = true
		t.AddLog(fmt.Sprintf("%s raises to %d", seat.Name, amount))

	default:
		return fmt.Errorf("unknown action %q", action)
	}

	// chip conservation must hold after every applied action
	if got := e.chipsAtStake(); got != e.handChips {
		e.abortHand(fmt.Sprintf("after %s by seat %d: have %d want %d", action, seat.Index, got, e.handChips))
		e.broadcast()
		return fmt.Errorf("hand aborted: chip accounting mismatch")
	}

	switch {
	case e.remainingInHand() == 1:
		e.earlyWin(e.lastInHand())
	case e.bettingRoundDone():
		e.advanceStreet()
	default:
		e.advanceTurnFrom(seat.Index)
	}

	e.broadcast()
	return nil
}

func (e *Engine) placeBet(s *table.Seat, amount int64) {
	s.Chips -= amount
	s.Bet += amount
	if s.Chips == 0 {
		s.Status = table.SeatAllIn
	}
}

func (e *Engine) foldSeat(s *table.Seat) {
	s.Status = table.SeatFolded
	s.Acted = true
	e.pots.Fold(s.Index)
}

// reopenBetting clears acted flags behind a full bet or raise.
func (e *Engine) reopenBetting(raiser *table.Seat) {
	for _, s := range e.Table.Seats {
		if s != nil && s != raiser && s.Status == table.SeatActive {
			s.Acted = false
		}
	}
}

// bettingRoundDone: every live, non-all-in seat has matched the current bet
// and acted since the last raise.
func (e *Engine) bettingRoundDone() bool {
	t := e.Table
	for _, s := range t.Seats {
		if s == nil || s.Status != table.SeatActive {
			continue
		}
		if !s.Acted || s.Bet != t.CurrentBet {
			return false
		}
	}
	return true
}

// advanceTurnFrom hands action to the next live seat clockwise of from.
// Seats flagged to leave are folded the moment the action reaches them.
func (e *Engine) advanceTurnFrom(from int) {
	t := e.Table
	for {
		next := t.NextSeat(from, func(s *table.Seat) bool { return s.Status == table.SeatActive })
		if next == nil {
			e.advanceStreet()
			return
		}
		if !next.LeavePending {
			e.setTurn(next.Index)
			return
		}
		e.foldSeat(next)
		t.AddLog(fmt.Sprintf("%s folds (leaving)", next.Name))
		if e.remainingInHand() == 1 {
			e.earlyWin(e.lastInHand())
			return
		}
		if e.bettingRoundDone() {
			e.advanceStreet()
			return
		}
		from = next.Index
	}
}
