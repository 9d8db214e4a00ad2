package card

import "fmt"

// Card (suit 0-3, rank 2-14, ace high)
type Card struct {
	Suit int `json:"suit"`
	Rank int `json:"rank"`
}

const (
	SuitClub = iota
	SuitDiamond
	SuitHeart
	SuitSpade
)

// All returns the 52-card deck in a fixed order.
func All() []Card {
	deck := make([]Card, 0, 52)
	for s := 0; s < 4; s++ {
		for r := 2; r <= 14; r++ {
			deck = append(deck, Card{Suit: s, Rank: r})
		}
	}
	return deck
}

func (c Card) String() string {
	suits := []string{"♣", "♦", "♥", "♠"}
	ranks := map[int]string{
		10: "T",
		11: "J",
		12: "Q",
		13: "K",
		14: "A",
	}
	rankStr, ok := ranks[c.Rank]
	if !ok {
		rankStr = fmt.Sprintf("%d", c.Rank)
	}
	suitStr := "?"
	if c.Suit >= 0 && c.Suit < len(suits) {
		suitStr = suits[c.Suit]
	}
	return rankStr + suitStr
}
