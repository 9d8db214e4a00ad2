package dealer

import (
	"testing"

	"CampusPoker/internal/game/card"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullDeckUnique(t *testing.T) {
	d := NewDealer(1)
	d.NewDeck()
	require.Equal(t, 52, d.Remaining())

	seen := make(map[card.Card]bool)
	for _, c := range d.Draw(52) {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
	assert.Zero(t, d.Remaining())
}

func TestSameSeedSameOrder(t *testing.T) {
	a := NewDealer(42)
	b := NewDealer(42)
	a.NewDeck()
	b.NewDeck()
	assert.Equal(t, a.Draw(52), b.Draw(52))
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := NewDealer(1)
	b := NewDealer(2)
	a.NewDeck()
	b.NewDeck()
	assert.NotEqual(t, a.Draw(52), b.Draw(52))
}

func TestNewDeckReshuffles(t *testing.T) {
	d := NewDealer(7)
	d.NewDeck()
	first := d.Draw(52)
	d.NewDeck()
	second := d.Draw(52)
	// consecutive shuffles from an advancing stream should differ
	assert.NotEqual(t, first, second)
}

func TestDrawOne(t *testing.T) {
	d := NewDealer(3)
	d.NewDeck()
	c := d.DrawOne()
	assert.GreaterOrEqual(t, c.Rank, 2)
	assert.LessOrEqual(t, c.Rank, 14)
	assert.Equal(t, 51, d.Remaining())
}
