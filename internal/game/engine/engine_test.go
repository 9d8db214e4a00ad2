package engine

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"CampusPoker/internal/game/table"
	"CampusPoker/internal/identity"
	"CampusPoker/internal/ledger"
	"CampusPoker/internal/websocket"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHub records outgoing messages per user.
type mockHub struct {
	mu   sync.Mutex
	sent map[string][]websocket.OutgoingMessage
}

func newMockHub() *mockHub {
	return &mockHub{sent: make(map[string][]websocket.OutgoingMessage)}
}

func (h *mockHub) SendToPlayer(userID string, msg websocket.OutgoingMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent[userID] = append(h.sent[userID], msg)
}

func (h *mockHub) Close() {}

func (h *mockHub) messagesFor(userID string) []websocket.OutgoingMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]websocket.OutgoingMessage, len(h.sent[userID]))
	copy(out, h.sent[userID])
	return out
}

type fixture struct {
	eng   *Engine
	hub   *mockHub
	led   *ledger.MemoryLedger
	clock *quartz.Mock
}

func newFixture(t *testing.T) *fixture {
	return newFixtureTable(t, table.New("t1", 6, 5, 10, 200, 20))
}

func newFixtureTable(t *testing.T, tbl *table.Table) *fixture {
	t.Helper()
	hub := newMockHub()
	led := ledger.NewMemoryLedger()
	clock := quartz.NewMock(t)
	eng := New(tbl, hub, led, clock, 1, log.New(io.Discard))
	go eng.Run()
	t.Cleanup(eng.Stop)
	return &fixture{eng: eng, hub: hub, led: led, clock: clock}
}

func (f *fixture) seat(t *testing.T, userID string, balance, buyIn int64) {
	t.Helper()
	f.led.SetBalance(userID, balance)
	p := identity.Profile{UserID: userID, Name: userID, Handle: "@" + userID}
	require.NoError(t, f.eng.Sit(p, buyIn))
}

// deal fires the pending deal timer and waits for the hand to start.
func (f *fixture) deal(t *testing.T) {
	t.Helper()
	f.clock.Advance(interHandDelay).MustWait(context.Background())
	require.Equal(t, table.StatusInHand, f.flush().Status)
}

// seatThree sits alice, bob and carol with 200 each and deals. First
// hand order: bob has the button, carol posts small blind, alice posts
// big blind, bob acts first.
func (f *fixture) seatThree(t *testing.T) {
	t.Helper()
	f.seat(t, "alice", 1000, 200)
	f.seat(t, "bob", 1000, 200)
	f.seat(t, "carol", 1000, 200)
	f.deal(t)
}

// flush waits for all queued engine work to finish.
func (f *fixture) flush() table.Snapshot {
	return f.eng.Snapshot("alice")
}

func (f *fixture) totalChips() int64 {
	var sum int64
	_ = f.eng.do(func() error {
		sum = f.eng.Table.ChipsInPlay()
		return nil
	})
	return sum
}

func TestSitDebitsLedgerAndStartsHand(t *testing.T) {
	f := newFixture(t)
	f.seat(t, "alice", 1000, 200)

	bal, _ := f.led.Balance(context.Background(), "alice")
	assert.Equal(t, int64(800), bal)

	snap := f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status, "one player is not enough")

	f.seat(t, "bob", 1000, 200)
	snap = f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status, "deal waits out the start delay")

	f.deal(t)
	snap = f.flush()
	require.Equal(t, table.StatusInHand, snap.Status)
	assert.Equal(t, table.StreetPreflop, snap.Street)
	assert.Equal(t, int64(15), snap.Pot, "small and big blind posted")
	for _, sv := range snap.Seats {
		if sv.UserID == "alice" {
			assert.Len(t, sv.Cards, 2, "own hole cards visible")
		} else {
			assert.Nil(t, sv.Cards, "opponent hole cards hidden")
		}
	}
}

func TestSitValidation(t *testing.T) {
	f := newFixture(t)
	f.led.SetBalance("alice", 1000)
	p := identity.Profile{UserID: "alice", Name: "alice"}

	assert.Error(t, f.eng.Sit(p, 100), "below table minimum")

	require.NoError(t, f.eng.Sit(p, 200))
	assert.ErrorIs(t, f.eng.Sit(p, 200), ErrAlreadySeated)

	f.led.SetBalance("broke", 50)
	err := f.eng.Sit(identity.Profile{UserID: "broke", Name: "broke"}, 200)
	assert.ErrorIs(t, err, ledger.ErrInsufficient)

	for _, id := range []string{"u2", "u3", "u4", "u5", "u6"} {
		f.seat(t, id, 1000, 200)
	}
	f.led.SetBalance("late", 1000)
	err = f.eng.Sit(identity.Profile{UserID: "late", Name: "late"}, 200)
	assert.ErrorIs(t, err, ErrTableFull)
}

func TestBlindsCallAndBigBlindOption(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	require.NoError(t, f.eng.Act("bob", "call", 0))
	require.NoError(t, f.eng.Act("carol", "call", 0))

	snap := f.flush()
	assert.Equal(t, table.StreetPreflop, snap.Street, "big blind still has the option")
	require.NotNil(t, snap.CurrentPlayerIndex)
	assert.Equal(t, 0, *snap.CurrentPlayerIndex, "action on the big blind")

	require.NoError(t, f.eng.Act("alice", "check", 0))
	snap = f.flush()
	assert.Equal(t, table.StreetFlop, snap.Street)
	assert.Equal(t, int64(30), snap.Pot)
	assert.Len(t, snap.Community, 3)
	assert.Equal(t, int64(600), f.totalChips())
}

func TestActValidation(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	assert.ErrorIs(t, f.eng.Act("carol", "call", 0), ErrOutOfTurn)
	assert.ErrorIs(t, f.eng.Act("ghost", "call", 0), ErrNotSeated)
	assert.Error(t, f.eng.Act("bob", "check", 0), "cannot check facing the blind")
	assert.Error(t, f.eng.Act("bob", "jam", 0), "unknown action")
	assert.Error(t, f.eng.Act("bob", "bet", 50), "cannot bet with one open")
}

func TestRaiseBoundaries(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	// current bet 10, min raise 10: raise-to below 20 is rejected
	assert.Error(t, f.eng.Act("bob", "raise", 19))
	require.NoError(t, f.eng.Act("bob", "raise", 20))

	// the full raise resets the floor: carol must go to at least 30
	assert.Error(t, f.eng.Act("carol", "raise", 29))
	require.NoError(t, f.eng.Act("carol", "raise", 30))

	assert.Error(t, f.eng.Act("alice", "raise", 500), "beyond stack")
	require.NoError(t, f.eng.Act("alice", "call", 0))
	assert.Equal(t, int64(600), f.totalChips())
}

func TestFoldOutAwardsPotWithoutReveal(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	require.NoError(t, f.eng.Act("bob", "fold", 0))
	require.NoError(t, f.eng.Act("carol", "fold", 0))

	snap := f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status)
	require.NotNil(t, snap.LastHandResult)
	require.Len(t, snap.LastHandResult.Winners, 1)
	w := snap.LastHandResult.Winners[0]
	assert.Equal(t, "alice", w.UserID)
	// the uncalled half of the big blind went back first, the pot held
	// the small blind plus its match
	assert.Equal(t, int64(10), w.Amount)
	assert.Empty(t, w.HandName, "no showdown, no hand revealed")
	for _, sv := range snap.Seats {
		assert.False(t, sv.ShowCards)
	}
	assert.Equal(t, int64(600), f.totalChips())
}

func TestUncalledBetReturned(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	require.NoError(t, f.eng.Act("bob", "raise", 50))
	require.NoError(t, f.eng.Act("carol", "fold", 0))
	require.NoError(t, f.eng.Act("alice", "fold", 0))

	snap := f.flush()
	require.NotNil(t, snap.LastHandResult)
	w := snap.LastHandResult.Winners[0]
	assert.Equal(t, "bob", w.UserID)
	// the raise above alice's 10 was never called; bob wins only 5+10+10
	assert.Equal(t, int64(25), w.Amount)
	assert.Equal(t, int64(600), f.totalChips())
}

func TestHeadsUpCheckdownToShowdown(t *testing.T) {
	f := newFixture(t)
	f.seat(t, "alice", 1000, 200)
	f.seat(t, "bob", 1000, 200)
	f.deal(t)

	// heads-up: the button posts the small blind and acts first
	require.NoError(t, f.eng.Act("bob", "call", 0))
	require.NoError(t, f.eng.Act("alice", "check", 0))
	for street := 0; street < 3; street++ {
		require.NoError(t, f.eng.Act("alice", "check", 0))
		require.NoError(t, f.eng.Act("bob", "check", 0))
	}

	snap := f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status)
	require.NotNil(t, snap.LastHandResult)
	var won int64
	for _, w := range snap.LastHandResult.Winners {
		won += w.Amount
		assert.NotEmpty(t, w.HandName)
	}
	assert.Equal(t, int64(20), won, "both blinds called to 10")
	assert.Equal(t, int64(400), f.totalChips())
	// showdown reveals every live hand
	for _, sv := range snap.Seats {
		assert.Len(t, sv.Cards, 2)
	}
}

func TestShortAllInBuildsSidePot(t *testing.T) {
	f := newFixture(t)
	f.seat(t, "alice", 1000, 200)
	f.seat(t, "bob", 1000, 400)
	f.seat(t, "carol", 1000, 400)
	f.deal(t)

	require.NoError(t, f.eng.Act("bob", "raise", 400))
	require.NoError(t, f.eng.Act("carol", "call", 0))
	// alice covers only 200 of the 400; her call is a short all-in
	require.NoError(t, f.eng.Act("alice", "call", 0))

	// everyone is all-in, the board runs out straight to showdown
	snap := f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status)
	require.NotNil(t, snap.LastHandResult)
	var won, aliceWon int64
	for _, w := range snap.LastHandResult.Winners {
		won += w.Amount
		if w.UserID == "alice" {
			aliceWon = w.Amount
		}
	}
	assert.Equal(t, int64(1000), won, "200+400+400 contributed")
	assert.LessOrEqual(t, aliceWon, int64(600), "short stack cannot win the side pot")
	assert.Equal(t, int64(1000), f.totalChips())
}

func TestMidHandJoinerSitsOutUntilNextHand(t *testing.T) {
	f := newFixture(t)
	f.seat(t, "alice", 1000, 200)
	f.seat(t, "bob", 1000, 200)
	f.deal(t)

	// carol's stack enters the table while the hand runs
	f.seat(t, "carol", 1000, 200)

	require.NoError(t, f.eng.Act("bob", "call", 0), "join must not trip hand accounting")
	snap := f.flush()
	require.Equal(t, table.StatusInHand, snap.Status, "hand keeps running")

	require.NoError(t, f.eng.Act("alice", "check", 0))
	for street := 0; street < 3; street++ {
		require.NoError(t, f.eng.Act("alice", "check", 0))
		require.NoError(t, f.eng.Act("bob", "check", 0))
	}

	snap = f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status)
	require.NotNil(t, snap.LastHandResult, "hand settled normally")
	assert.Equal(t, int64(600), f.totalChips())

	// carol is dealt into the next hand
	f.deal(t)
	snap = f.flush()
	live := 0
	for _, sv := range snap.Seats {
		if sv.Status == table.SeatActive || sv.Status == table.SeatAllIn {
			live++
		}
	}
	assert.Equal(t, 3, live)
}

func TestShortAllInDoesNotReopenRaising(t *testing.T) {
	f := newFixtureTable(t, table.New("t1", 6, 5, 10, 25, 20))
	f.seat(t, "alice", 1000, 25)
	f.seat(t, "bob", 1000, 200)
	f.seat(t, "carol", 1000, 200)
	f.deal(t)

	require.NoError(t, f.eng.Act("bob", "raise", 20))
	require.NoError(t, f.eng.Act("carol", "call", 0))
	// alice shoves for 25, short of the full raise to 30
	require.NoError(t, f.eng.Act("alice", "raise", 25))

	// bob and carol already matched 20: they may call or fold, but the
	// short all-in did not buy them a fresh raise
	assert.Error(t, f.eng.Act("bob", "raise", 40))
	require.NoError(t, f.eng.Act("bob", "call", 0))
	assert.Error(t, f.eng.Act("carol", "raise", 50))
	require.NoError(t, f.eng.Act("carol", "call", 0))

	snap := f.flush()
	assert.Equal(t, table.StreetFlop, snap.Street)
	assert.Equal(t, int64(75), snap.Pot)
	assert.Equal(t, int64(425), f.totalChips())
}

func TestTurnTimeoutDefaults(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)
	ctx := context.Background()

	// bob faces the big blind, his timeout folds him
	f.clock.Advance(20 * time.Second).MustWait(ctx)
	snap := f.flush()
	for _, sv := range snap.Seats {
		if sv.UserID == "bob" {
			assert.Equal(t, table.SeatFolded, sv.Status)
		}
	}
	require.NotNil(t, snap.CurrentPlayerIndex)
	assert.Equal(t, 2, *snap.CurrentPlayerIndex, "action moved to carol")

	// carol times out too, alice wins unconsented blinds
	f.clock.Advance(20 * time.Second).MustWait(ctx)
	snap = f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status)
	require.NotNil(t, snap.LastHandResult)
	assert.Equal(t, "alice", snap.LastHandResult.Winners[0].UserID)
}

func TestStaleTimerIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)
	ctx := context.Background()

	// bob acts before his timer fires; the old epoch must not fold him
	require.NoError(t, f.eng.Act("bob", "call", 0))
	f.clock.Advance(20 * time.Second).MustWait(ctx)

	snap := f.flush()
	for _, sv := range snap.Seats {
		switch sv.UserID {
		case "bob":
			assert.Equal(t, table.SeatActive, sv.Status, "stale timeout ignored")
		case "carol":
			assert.Equal(t, table.SeatFolded, sv.Status, "live timeout folded carol")
		}
	}
}

func TestAutoDealAfterSettlement(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)
	ctx := context.Background()

	require.NoError(t, f.eng.Act("bob", "fold", 0))
	require.NoError(t, f.eng.Act("carol", "fold", 0))
	snap := f.flush()
	require.Equal(t, table.StatusWaiting, snap.Status)

	f.clock.Advance(interHandDelay).MustWait(ctx)
	snap = f.flush()
	assert.Equal(t, table.StatusInHand, snap.Status, "next hand dealt automatically")
	// the button moved from bob to carol
	assert.Equal(t, 0, snap.SmallBlindIndex)
	assert.Equal(t, 1, snap.BigBlindIndex)
}

func TestLeaveBetweenHandsCreditsLedger(t *testing.T) {
	f := newFixture(t)
	f.seat(t, "alice", 1000, 200)

	removed := make(chan int, 1)
	_ = f.eng.do(func() error {
		f.eng.OnSeatRemoved = func(userID string, left int) { removed <- left }
		return nil
	})

	require.NoError(t, f.eng.Leave("alice"))
	bal, _ := f.led.Balance(context.Background(), "alice")
	assert.Equal(t, int64(1000), bal, "full stack returned")
	assert.False(t, f.eng.HasPlayer("alice"))
	select {
	case left := <-removed:
		assert.Zero(t, left)
	default:
		t.Fatal("seat removal callback not fired")
	}
}

func TestLeaveMidHandFoldsAndRemovesAfter(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	// alice is in the big blind mid-hand: leaving only flags the seat
	require.NoError(t, f.eng.Leave("alice"))
	assert.True(t, f.eng.HasPlayer("alice"))

	// action reaches alice and folds her out; bob and carol finish alone
	require.NoError(t, f.eng.Act("bob", "call", 0))
	require.NoError(t, f.eng.Act("carol", "raise", 20))
	require.NoError(t, f.eng.Act("bob", "fold", 0))

	snap := f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status)
	assert.False(t, f.eng.HasPlayer("alice"))
	bal, _ := f.led.Balance(context.Background(), "alice")
	assert.Equal(t, int64(990), bal, "stack minus the lost big blind")
}

func TestLeaveOnTurnFoldsImmediately(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	// bob holds the action; leaving must not wait out his turn clock
	require.NoError(t, f.eng.Leave("bob"))
	snap := f.flush()
	for _, sv := range snap.Seats {
		if sv.UserID == "bob" {
			assert.Equal(t, table.SeatFolded, sv.Status)
		}
	}
	require.NotNil(t, snap.CurrentPlayerIndex)
	assert.Equal(t, 2, *snap.CurrentPlayerIndex, "action moved to carol")

	require.NoError(t, f.eng.Act("carol", "fold", 0))
	snap = f.flush()
	assert.Equal(t, table.StatusWaiting, snap.Status)
	assert.False(t, f.eng.HasPlayer("bob"))
	bal, _ := f.led.Balance(context.Background(), "bob")
	assert.Equal(t, int64(1000), bal, "nothing committed, full stack returned")
}

func TestStopUnblocksPendingCommands(t *testing.T) {
	hub := newMockHub()
	led := ledger.NewMemoryLedger()
	tbl := table.New("t1", 6, 5, 10, 200, 20)
	eng := New(tbl, hub, led, quartz.NewMock(t), 1, log.New(io.Discard))

	// the loop never runs, so the command sits in the request buffer;
	// closing the table must still unblock the caller
	eng.Stop()
	eng.Stop() // idempotent

	done := make(chan error, 1)
	go func() { done <- eng.Act("alice", "check", 0) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, errTableClosed)
	case <-time.After(time.Second):
		t.Fatal("command blocked after table close")
	}
}

func TestRebuyRules(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	assert.ErrorIs(t, f.eng.Rebuy("ghost", 200), ErrNotSeated)
	assert.Error(t, f.eng.Rebuy("alice", 200), "stack not empty")
}

func TestShowOnlyBetweenHands(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	assert.Error(t, f.eng.Show("bob"), "hand still running")

	require.NoError(t, f.eng.Act("bob", "fold", 0))
	require.NoError(t, f.eng.Act("carol", "fold", 0))
	require.NoError(t, f.eng.Show("bob"))

	snap := f.flush()
	for _, sv := range snap.Seats {
		if sv.UserID == "bob" {
			assert.True(t, sv.ShowCards)
			assert.Len(t, sv.Cards, 2, "revealed to everyone")
		}
	}
}

func TestObserverWatchAndUnwatch(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	f.eng.Watch("railbird")
	msgs := f.hub.messagesFor("railbird")
	require.NotEmpty(t, msgs, "watcher gets an immediate snapshot")
	snap, ok := msgs[len(msgs)-1].Data.(table.Snapshot)
	require.True(t, ok)
	for _, sv := range snap.Seats {
		assert.Nil(t, sv.Cards, "observers never see hole cards")
	}

	before := len(f.hub.messagesFor("railbird"))
	require.NoError(t, f.eng.Act("bob", "call", 0))
	assert.Greater(t, len(f.hub.messagesFor("railbird")), before, "watcher gets broadcasts")

	f.eng.Unwatch("railbird")
	before = len(f.hub.messagesFor("railbird"))
	require.NoError(t, f.eng.Act("carol", "call", 0))
	assert.Equal(t, before, len(f.hub.messagesFor("railbird")))
}

func TestSnapshotConsistentWithCommandOrder(t *testing.T) {
	f := newFixture(t)
	f.seatThree(t)

	require.NoError(t, f.eng.Act("bob", "raise", 40))
	snap := f.eng.Snapshot("carol")
	assert.Equal(t, int64(40), snap.CurrentBet)
	require.NotNil(t, snap.Actions)
	assert.Equal(t, int64(35), snap.Actions.CallAmount)
	assert.Equal(t, int64(70), snap.Actions.MinRaiseTo)
}
