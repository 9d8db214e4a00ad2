package eval

import (
	"sort"

	"CampusPoker/internal/game/card"
)

// Category of a 5-card hand, ascending strength.
type Category int

const (
	HighCard Category = iota + 1
	Pair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
)

var categoryNames = map[Category]string{
	HighCard:      "high card",
	Pair:          "pair",
	TwoPair:       "two pair",
	Trips:         "three of a kind",
	Straight:      "straight",
	Flush:         "flush",
	FullHouse:     "full house",
	Quads:         "four of a kind",
	StraightFlush: "straight flush",
}

func (c Category) String() string { return categoryNames[c] }

// Rank is a totally ordered hand strength: category first, then kickers
// high to low. Suit never breaks ties.
type Rank struct {
	Category Category    `json:"category"`
	Kickers  [5]int      `json:"kickers"`
	Best     []card.Card `json:"-"` // the 5 cards forming the rank
}

// Compare returns <0, 0, >0 as a is weaker than, equal to, stronger than b.
func Compare(a, b Rank) int {
	if a.Category != b.Category {
		return int(a.Category) - int(b.Category)
	}
	for i := 0; i < 5; i++ {
		if a.Kickers[i] != b.Kickers[i] {
			return a.Kickers[i] - b.Kickers[i]
		}
	}
	return 0
}

// Best evaluates the strongest 5-card hand available from hole+community
// (5 to 7 cards) by ranking every 5-card subset.
func Best(hole []card.Card, community []card.Card) Rank {
	all := make([]card.Card, 0, 7)
	all = append(all, hole...)
	all = append(all, community...)

	n := len(all)
	var best Rank
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						r := rank5(all[a], all[b], all[c], all[d], all[e])
						if best.Category == 0 || Compare(r, best) > 0 {
							r.Best = []card.Card{all[a], all[b], all[c], all[d], all[e]}
							best = r
						}
					}
				}
			}
		}
	}
	return best
}

func rank5(cards ...card.Card) Rank {
	// counts per rank, grouped by multiplicity
	counts := make(map[int]int, 5)
	flush := true
	for i, c := range cards {
		counts[c.Rank]++
		if i > 0 && c.Suit != cards[0].Suit {
			flush = false
		}
	}

	groups := make([]group, 0, 5)
	for r, n := range counts {
		groups = append(groups, group{r, n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	straightHigh := straightHighCard(counts)

	var out Rank
	switch {
	case flush && straightHigh > 0:
		out.Category = StraightFlush
		out.Kickers[0] = straightHigh
	case groups[0].count == 4:
		out.Category = Quads
		out.Kickers[0] = groups[0].rank
		out.Kickers[1] = groups[1].rank
	case groups[0].count == 3 && groups[1].count == 2:
		out.Category = FullHouse
		out.Kickers[0] = groups[0].rank
		out.Kickers[1] = groups[1].rank
	case flush:
		out.Category = Flush
		fillRanks(&out, groups)
	case straightHigh > 0:
		out.Category = Straight
		out.Kickers[0] = straightHigh
	case groups[0].count == 3:
		out.Category = Trips
		fillRanks(&out, groups)
	case groups[0].count == 2 && groups[1].count == 2:
		out.Category = TwoPair
		fillRanks(&out, groups)
	case groups[0].count == 2:
		out.Category = Pair
		fillRanks(&out, groups)
	default:
		out.Category = HighCard
		fillRanks(&out, groups)
	}
	return out
}

type group struct{ rank, count int }

func fillRanks(r *Rank, groups []group) {
	i := 0
	for _, g := range groups {
		if i >= 5 {
			break
		}
		r.Kickers[i] = g.rank
		i++
	}
}

// straightHighCard returns the high card of a straight formed by the five
// distinct ranks, or 0. The wheel (A-2-3-4-5) counts with high card 5.
func straightHighCard(counts map[int]int) int {
	if len(counts) != 5 {
		return 0
	}
	lo, hi := 15, 0
	for r := range counts {
		if r < lo {
			lo = r
		}
		if r > hi {
			hi = r
		}
	}
	if hi-lo == 4 {
		return hi
	}
	// wheel: A plays low
	if hi == 14 {
		if _, ok := counts[2]; ok {
			if _, ok := counts[3]; ok {
				if _, ok := counts[4]; ok {
					if _, ok := counts[5]; ok {
						return 5
					}
				}
			}
		}
	}
	return 0
}
