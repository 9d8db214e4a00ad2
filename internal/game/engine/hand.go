package engine

import (
	"context"
	"fmt"

	"CampusPoker/internal/game/eval"
	"CampusPoker/internal/game/table"
	"CampusPoker/internal/identity"
)

// ---------------------------------------------------------------
// seat lifecycle
// ---------------------------------------------------------------

func (e *Engine) sit(p identity.Profile, buyIn int64) error {
	t := e.Table
	if buyIn < t.MinBuyIn {
		return fmt.Errorf("buy-in %d below table minimum %d", buyIn, t.MinBuyIn)
	}
	if t.SeatOf(p.UserID) != nil {
		return ErrAlreadySeated
	}
	idx := t.FreeSeat()
	if idx < 0 {
		return ErrTableFull
	}
	// ledger debit and seating commit in the same serialized step: a
	// failed debit leaves the table untouched
	if err := e.led.Debit(context.Background(), p.UserID, buyIn); err != nil {
		return err
	}
	t.Seats[idx] = &table.Seat{
		Index:  idx,
		UserID: p.UserID,
		Name:   p.Name,
		Handle: p.Handle,
		Chips:  buyIn,
		Status: table.SeatOut, // dealt in at the next hand
	}
	t.AddLog(fmt.Sprintf("%s sat down with %d", p.Name, buyIn))
	e.logger.Info("player seated", "user", p.UserID, "seat", idx, "buyIn", buyIn)

	e.scheduleStart()
	e.broadcast()
	return nil
}

func (e *Engine) rebuy(userID string, amount int64) error {
	t := e.Table
	seat := t.SeatOf(userID)
	if seat == nil {
		return ErrNotSeated
	}
	if seat.Chips != 0 {
		return fmt.Errorf("rebuy only allowed with an empty stack")
	}
	// a seat still inside a running hand cannot rebuy, only a busted seat
	// sitting out between hands
	if t.Status != table.StatusWaiting && seat.Status != table.SeatOut {
		return fmt.Errorf("rebuy not allowed during a hand")
	}
	if amount < t.MinBuyIn {
		return fmt.Errorf("rebuy %d below table minimum %d", amount, t.MinBuyIn)
	}
	if err := e.led.Debit(context.Background(), userID, amount); err != nil {
		return err
	}
	seat.Chips = amount
	t.AddLog(fmt.Sprintf("%s rebought for %d", seat.Name, amount))

	e.scheduleStart()
	e.broadcast()
	return nil
}

func (e *Engine) leave(userID string) error {
	t := e.Table
	seat := t.SeatOf(userID)
	if seat == nil {
		return ErrNotSeated
	}
	inHand := t.Status != table.StatusWaiting && seat.Status != table.SeatOut
	if inHand {
		// fold on next action, removed once the hand ends
		seat.LeavePending = true
		t.AddLog(fmt.Sprintf("%s is leaving after this hand", seat.Name))
		if t.CurrentIndex == seat.Index && seat.Status == table.SeatActive {
			// the action is already on the leaver, no reason to wait out
			// the turn clock
			e.foldSeat(seat)
			t.AddLog(fmt.Sprintf("%s folds (leaving)", seat.Name))
			switch {
			case e.remainingInHand() == 1:
				e.earlyWin(e.lastInHand())
			case e.bettingRoundDone():
				e.advanceStreet()
			default:
				e.advanceTurnFrom(seat.Index)
			}
		}
		e.broadcast()
		return nil
	}
	e.removeSeat(seat)
	e.broadcast()
	return nil
}

// removeSeat gives table chips back to the coin ledger and frees the seat.
func (e *Engine) removeSeat(seat *table.Seat) {
	t := e.Table
	if seat.Chips > 0 {
		if err := e.led.Credit(context.Background(), seat.UserID, seat.Chips); err != nil {
			// credit failures must not strand the seat; log loudly
			e.logger.Error("ledger credit failed on leave", "user", seat.UserID, "amount", seat.Chips, "err", err)
		}
	}
	t.Seats[seat.Index] = nil
	t.AddLog(fmt.Sprintf("%s left the table", seat.Name))
	e.logger.Info("player left", "user", seat.UserID, "seat", seat.Index)
	if e.OnSeatRemoved != nil {
		e.OnSeatRemoved(seat.UserID, t.Occupied())
	}
}

func (e *Engine) show(userID string) error {
	t := e.Table
	seat := t.SeatOf(userID)
	if seat == nil {
		return ErrNotSeated
	}
	if t.Status != table.StatusWaiting {
		return fmt.Errorf("cards can only be shown between hands")
	}
	if len(seat.HoleCards) != 2 {
		return fmt.Errorf("no cards to show")
	}
	seat.ShowCards = true
	t.AddLog(fmt.Sprintf("%s shows %v %v", seat.Name, seat.HoleCards[0], seat.HoleCards[1]))
	e.broadcast()
	return nil
}

// ---------------------------------------------------------------
// hand start
// ---------------------------------------------------------------

func (e *Engine) maybeStartHand() {
	t := e.Table
	if t.Status == table.StatusWaiting && t.Funded() >= 2 {
		e.startHand()
	}
}

// scheduleStart arms a short deal delay instead of dealing immediately,
// so players seated in the same moment all land in the first hand. A
// timer firing while a hand runs is a no-op.
func (e *Engine) scheduleStart() {
	t := e.Table
	if t.Status != table.StatusWaiting || t.Funded() < 2 {
		return
	}
	e.clock.AfterFunc(interHandDelay, func() {
		e.post(func() error {
			e.maybeStartHand()
			if e.Table.Status == table.StatusInHand {
				e.broadcast()
			}
			return nil
		})
	})
}

func (e *Engine) startHand() {
	t := e.Table

	t.Community = nil
	t.Pot = 0
	t.CurrentBet = 0
	t.MinRaise = t.BigBlind
	e.pots.Reset()

	participants := make([]*table.Seat, 0, t.MaxSeats)
	for _, s := range t.Seats {
		if s == nil {
			continue
		}
		s.Bet = 0
		s.Acted = false
		s.IsDealer = false
		s.HoleCards = nil
		s.ShowCards = false
		if s.Chips > 0 {
			s.Status = table.SeatActive
			participants = append(participants, s)
		} else {
			s.Status = table.SeatOut
		}
	}
	if len(participants) < 2 {
		return
	}

	// conservation baseline and the restore point for aborts
	e.preHandStacks = make(map[int]int64, len(participants))
	for _, s := range participants {
		e.preHandStacks[s.Index] = s.Chips
	}

	isActive := func(s *table.Seat) bool { return s.Status == table.SeatActive }

	// rotate the button to the next funded seat
	dealerSeat := t.NextSeat(t.DealerIndex, isActive)
	t.DealerIndex = dealerSeat.Index
	dealerSeat.IsDealer = true

	var sb, bb *table.Seat
	if len(participants) == 2 {
		// heads-up: the button posts the small blind and acts first preflop
		sb = dealerSeat
		bb = t.NextSeat(sb.Index, isActive)
	} else {
		sb = t.NextSeat(dealerSeat.Index, isActive)
		bb = t.NextSeat(sb.Index, isActive)
	}
	t.SmallBlindIndex = sb.Index
	t.BigBlindIndex = bb.Index

	// shuffle and deal hole cards one at a time starting left of the button
	e.dealer.NewDeck()
	order := dealOrder(t, sb)
	for i := 0; i < 2; i++ {
		for _, s := range order {
			s.HoleCards = append(s.HoleCards, e.dealer.DrawOne())
		}
	}

	// blinds are forced bets, not validated as actions
	e.postBlind(sb, t.SmallBlind)
	e.postBlind(bb, t.BigBlind)
	t.CurrentBet = t.BigBlind
	t.MinRaise = t.BigBlind

	t.Status = table.StatusInHand
	t.Street = table.StreetPreflop
	e.handChips = e.chipsAtStake()

	t.AddLog(fmt.Sprintf("new hand: %s posts %d, %s posts %d", sb.Name, t.SmallBlind, bb.Name, t.BigBlind))
	e.logger.Info("hand started", "players", len(participants), "dealer", t.DealerIndex)

	if len(participants) == 2 {
		e.advanceTurnFrom(prevIndex(t, sb))
	} else {
		e.advanceTurnFrom(bb.Index)
	}
}

// dealOrder lists the hand's participants in ring order starting at the
// small blind.
func dealOrder(t *table.Table, sb *table.Seat) []*table.Seat {
	isActive := func(s *table.Seat) bool { return s.Status == table.SeatActive }
	order := []*table.Seat{sb}
	for cur := t.NextSeat(sb.Index, isActive); cur != nil && cur != sb; cur = t.NextSeat(cur.Index, isActive) {
		order = append(order, cur)
	}
	return order
}

// prevIndex returns an index whose next active seat is s, so advanceTurnFrom
// lands on s itself.
func prevIndex(t *table.Table, s *table.Seat) int {
	return (s.Index - 1 + t.MaxSeats) % t.MaxSeats
}

// postBlind takes a forced bet, short stacks go all-in for less.
func (e *Engine) postBlind(s *table.Seat, amount int64) {
	if amount > s.Chips {
		amount = s.Chips
	}
	s.Chips -= amount
	s.Bet += amount
	if s.Chips == 0 {
		s.Status = table.SeatAllIn
	}
}

// ---------------------------------------------------------------
// street advancement & showdown
// ---------------------------------------------------------------

// collectBets sweeps per-street bets into the pot tiers.
func (e *Engine) collectBets() {
	t := e.Table
	for _, s := range t.Seats {
		if s == nil || s.Bet == 0 {
			continue
		}
		e.pots.Add(s.Index, s.Bet)
		s.Bet = 0
	}
	t.Pot = e.pots.Total()
	t.CurrentBet = 0
	t.MinRaise = t.BigBlind
	for _, s := range t.Seats {
		if s != nil {
			s.Acted = false
		}
	}
}

func (e *Engine) advanceStreet() {
	t := e.Table
	e.collectBets()

	if t.Street == table.StreetRiver {
		e.showdown()
		return
	}
	if e.countActive() <= 1 {
		// nobody left who can bet: deal the remaining board and show down
		e.dealRunout()
		e.showdown()
		return
	}

	switch t.Street {
	case table.StreetPreflop:
		t.Street = table.StreetFlop
		t.Community = append(t.Community, e.dealer.Draw(3)...)
	case table.StreetFlop:
		t.Street = table.StreetTurn
		t.Community = append(t.Community, e.dealer.DrawOne())
	case table.StreetTurn:
		t.Street = table.StreetRiver
		t.Community = append(t.Community, e.dealer.DrawOne())
	}
	t.AddLog(fmt.Sprintf("%s: %v", t.Street, t.Community))

	// action starts at the first live seat after the button
	e.advanceTurnFrom(t.DealerIndex)
}

func (e *Engine) dealRunout() {
	t := e.Table
	if len(t.Community) == 0 {
		t.Community = append(t.Community, e.dealer.Draw(3)...)
	}
	for len(t.Community) < 5 {
		t.Community = append(t.Community, e.dealer.DrawOne())
	}
}

func (e *Engine) showdown() {
	t := e.Table
	t.Street = table.StreetShowdown
	t.Status = table.StatusShowdown
	e.clearTurn()

	// uncalled excess goes back before pots are partitioned
	if seatIdx, amt := e.pots.Refund(); amt > 0 {
		if s := t.Seats[seatIdx]; s != nil {
			s.Chips += amt
			t.AddLog(fmt.Sprintf("%d uncalled chips returned to %s", amt, s.Name))
		}
	}
	t.Pot = e.pots.Total()

	// reveal every hand still eligible for a pot
	ranks := make(map[int]eval.Rank, t.MaxSeats)
	for _, s := range t.Seats {
		if s == nil || s.Status == table.SeatFolded || s.Status == table.SeatOut || len(s.HoleCards) != 2 {
			continue
		}
		s.ShowCards = true
		ranks[s.Index] = eval.Best(s.HoleCards, t.Community)
	}

	result := &table.HandResult{Timestamp: e.clock.Now()}
	won := make(map[int]int64)
	handNames := make(map[int]string)

	for _, p := range e.pots.Build() {
		winners := potWinners(p.Eligible, ranks)
		if len(winners) == 0 {
			continue
		}
		if len(winners) > 1 {
			result.IsSplit = true
		}
		share := p.Amount / int64(len(winners))
		remainder := p.Amount % int64(len(winners))

		// odd chips go one at a time starting left of the button
		ordered := orderFromDealer(t, winners)
		for i, idx := range ordered {
			amt := share
			if int64(i) < remainder {
				amt++
			}
			won[idx] += amt
			if s := t.Seats[idx]; s != nil {
				s.Chips += amt
			}
			handNames[idx] = ranks[idx].Category.String()
		}
	}

	for _, s := range t.Seats {
		if s == nil {
			continue
		}
		amt, ok := won[s.Index]
		if !ok {
			continue
		}
		result.Winners = append(result.Winners, table.Winner{
			SeatIndex: s.Index,
			UserID:    s.UserID,
			Amount:    amt,
			HandName:  handNames[s.Index],
		})
		t.AddLog(fmt.Sprintf("%s wins %d with %s", s.Name, amt, handNames[s.Index]))
	}

	t.Pot = 0
	t.LastResult = result
	e.finishHand()
}

// potWinners picks the strongest hands among a pot's eligible seats.
func potWinners(eligible []int, ranks map[int]eval.Rank) []int {
	var winners []int
	for _, idx := range eligible {
		r, ok := ranks[idx]
		if !ok {
			continue
		}
		if len(winners) == 0 {
			winners = []int{idx}
			continue
		}
		switch c := eval.Compare(r, ranks[winners[0]]); {
		case c > 0:
			winners = []int{idx}
		case c == 0:
			winners = append(winners, idx)
		}
	}
	return winners
}

// orderFromDealer sorts seat indexes clockwise starting just left of the
// button.
func orderFromDealer(t *table.Table, seats []int) []int {
	out := append([]int{}, seats...)
	pos := func(idx int) int { return (idx - t.DealerIndex - 1 + t.MaxSeats) % t.MaxSeats }
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && pos(out[j]) < pos(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// earlyWin awards everything to the last seat standing, no reveal, no
// evaluation.
func (e *Engine) earlyWin(winner *table.Seat) {
	t := e.Table
	e.collectBets()
	e.clearTurn()

	if seatIdx, amt := e.pots.Refund(); amt > 0 {
		if s := t.Seats[seatIdx]; s != nil {
			s.Chips += amt
		}
	}
	total := e.pots.Total()
	winner.Chips += total
	t.Pot = 0

	t.LastResult = &table.HandResult{
		Winners:   []table.Winner{{SeatIndex: winner.Index, UserID: winner.UserID, Amount: total}},
		Timestamp: e.clock.Now(),
	}
	t.AddLog(fmt.Sprintf("%s wins %d, everyone else folded", winner.Name, total))
	e.finishHand()
}

// finishHand returns the table to waiting, removes leavers and arms the
// next auto-deal.
func (e *Engine) finishHand() {
	t := e.Table
	t.Status = table.StatusWaiting
	t.Street = ""
	e.clearTurn()
	e.pots.Reset()

	if got, want := e.chipsAtStake(), e.handChips; got != want {
		e.abortHand(fmt.Sprintf("settlement mismatch: have %d want %d", got, want))
		return
	}

	for _, s := range t.Seats {
		if s == nil {
			continue
		}
		if s.Status != table.SeatOut {
			s.Status = table.SeatOut
		}
		if s.LeavePending {
			e.removeSeat(s)
		}
	}

	e.scheduleStart()
}

// abortHand restores pre-hand stacks after an invariant violation. Never
// silent: the violation is logged for investigation.
func (e *Engine) abortHand(reason string) {
	t := e.Table
	e.logger.Error("hand aborted, chips restored", "reason", reason, "table", t.ID)
	for idx, chips := range e.preHandStacks {
		if s := t.Seats[idx]; s != nil {
			s.Chips = chips
			s.Bet = 0
			s.Status = table.SeatOut
		}
	}
	t.Pot = 0
	t.CurrentBet = 0
	t.Community = nil
	t.Status = table.StatusWaiting
	t.Street = ""
	e.clearTurn()
	e.pots.Reset()
	t.AddLog("hand aborted, bets returned")
}

// ---------------------------------------------------------------
// helpers
// ---------------------------------------------------------------

// chipsAtStake sums the pot, live bets and stacks of the seats dealt into
// the current hand. A stack seated or re-funded while the hand runs waits
// for the next deal and stays outside the conservation baseline.
func (e *Engine) chipsAtStake() int64 {
	t := e.Table
	total := t.Pot
	for idx := range e.preHandStacks {
		if s := t.Seats[idx]; s != nil {
			total += s.Chips + s.Bet
		}
	}
	return total
}

// countActive counts seats that can still bet (not folded, not all-in).
func (e *Engine) countActive() int {
	n := 0
	for _, s := range e.Table.Seats {
		if s != nil && s.Status == table.SeatActive {
			n++
		}
	}
	return n
}

// remainingInHand counts seats still holding live cards.
func (e *Engine) remainingInHand() int {
	n := 0
	for _, s := range e.Table.Seats {
		if s != nil && (s.Status == table.SeatActive || s.Status == table.SeatAllIn) {
			n++
		}
	}
	return n
}

func (e *Engine) lastInHand() *table.Seat {
	for _, s := range e.Table.Seats {
		if s != nil && (s.Status == table.SeatActive || s.Status == table.SeatAllIn) {
			return s
		}
	}
	return nil
}
