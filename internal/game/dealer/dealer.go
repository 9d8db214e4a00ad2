package dealer

import (
	"math/rand"

	"CampusPoker/internal/game/card"
)

// Dealer only shuffles and deals, no rule knowledge. The rand source is
// injected so hand sequences are reproducible in tests.
type Dealer struct {
	deck []card.Card
	rnd  *rand.Rand
}

func NewDealer(seed int64) *Dealer {
	return &Dealer{
		deck: make([]card.Card, 0, 52),
		rnd:  rand.New(rand.NewSource(seed)),
	}
}

// NewDeck builds a fresh 52-card deck and shuffles it.
func (d *Dealer) NewDeck() {
	d.deck = card.All()
	d.shuffle()
}

// Fisher-Yates
func (d *Dealer) shuffle() {
	for i := len(d.deck) - 1; i > 0; i-- {
		j := d.rnd.Intn(i + 1)
		d.deck[i], d.deck[j] = d.deck[j], d.deck[i]
	}
}

// Draw deals n cards without replacement. Returns nil when the deck is
// exhausted; callers always deal within a single shuffled deck per hand.
func (d *Dealer) Draw(n int) []card.Card {
	if n > len(d.deck) {
		return nil
	}
	out := d.deck[:n]
	d.deck = d.deck[n:]
	return out
}

// DrawOne deals a single card.
func (d *Dealer) DrawOne() card.Card {
	c := d.deck[0]
	d.deck = d.deck[1:]
	return c
}

// Remaining reports how many cards are left in the deck.
func (d *Dealer) Remaining() int {
	return len(d.deck)
}
