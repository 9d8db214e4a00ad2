package pot

import "sort"

// Pot is one contribution tier: chips at stake and the seats eligible to
// win them. Side pots form when an all-in seat's contribution caps a tier.
type Pot struct {
	Amount   int64
	Eligible []int
}

// Manager tracks total contributed chips per seat across a hand and
// partitions them into main and side pots at settlement.
type Manager struct {
	contributed map[int]int64
	folded      map[int]bool
}

func NewManager() *Manager {
	return &Manager{
		contributed: make(map[int]int64),
		folded:      make(map[int]bool),
	}
}

func (m *Manager) Reset() {
	m.contributed = make(map[int]int64)
	m.folded = make(map[int]bool)
}

// Add records chips a seat has put into the hand.
func (m *Manager) Add(seat int, amount int64) {
	if amount > 0 {
		m.contributed[seat] += amount
	}
}

// Fold marks a seat ineligible for any pot it contributed to.
func (m *Manager) Fold(seat int) {
	m.folded[seat] = true
}

func (m *Manager) Contributed(seat int) int64 {
	return m.contributed[seat]
}

// Total is the sum of all contributions still in play.
func (m *Manager) Total() int64 {
	var sum int64
	for _, c := range m.contributed {
		sum += c
	}
	return sum
}

// Refund removes and returns the uncalled excess of the largest contributor
// (the portion above the second-largest contribution). Returns (-1, 0) when
// nothing is uncalled.
func (m *Manager) Refund() (seat int, amount int64) {
	seat = -1
	var max, secondMax int64
	for s, c := range m.contributed {
		if c > max {
			secondMax = max
			max = c
			seat = s
		} else if c > secondMax {
			secondMax = c
		}
	}
	amount = max - secondMax
	if seat < 0 || amount <= 0 {
		return -1, 0
	}
	m.contributed[seat] -= amount
	return seat, amount
}

// Build partitions contributions into tiered pots. Each distinct
// contribution level closes a tier; a tier's pot is eligible to every
// non-folded seat that contributed at least that level. Adjacent pots with
// identical eligibility are merged.
func (m *Manager) Build() []Pot {
	seats := make([]int, 0, len(m.contributed))
	for s := range m.contributed {
		if m.contributed[s] > 0 {
			seats = append(seats, s)
		}
	}
	sort.Slice(seats, func(i, j int) bool {
		if m.contributed[seats[i]] != m.contributed[seats[j]] {
			return m.contributed[seats[i]] < m.contributed[seats[j]]
		}
		return seats[i] < seats[j]
	})

	pots := make([]Pot, 0, 2)
	var prevLevel int64
	for i, s := range seats {
		level := m.contributed[s]
		tier := level - prevLevel
		if tier <= 0 {
			continue
		}

		p := Pot{}
		for j := i; j < len(seats); j++ {
			p.Amount += tier
			if !m.folded[seats[j]] {
				p.Eligible = append(p.Eligible, seats[j])
			}
		}
		sort.Ints(p.Eligible)

		if len(p.Eligible) == 0 && len(pots) > 0 {
			// dead tier (folded contributions only), sweep into the pot below
			pots[len(pots)-1].Amount += p.Amount
		} else if len(pots) > 0 && sameSeats(pots[len(pots)-1].Eligible, p.Eligible) {
			pots[len(pots)-1].Amount += p.Amount
		} else {
			pots = append(pots, p)
		}
		prevLevel = level
	}
	return pots
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
