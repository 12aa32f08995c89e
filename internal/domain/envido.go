package domain

// EnvidoPoints scores a dealt hand: 20 plus the two best values of a shared
// suit, otherwise the single highest card value.
func EnvidoPoints(hand []Card) int {
	best := 0
	for _, c := range hand {
		if v := c.EnvidoValue(); v > best {
			best = v
		}
	}
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			if hand[i].Suit != hand[j].Suit {
				continue
			}
			if v := 20 + hand[i].EnvidoValue() + hand[j].EnvidoValue(); v > best {
				best = v
			}
		}
	}
	return best
}

// HasFlor reports three cards of the same suit.
func HasFlor(hand []Card) bool {
	if len(hand) != HandSize {
		return false
	}
	return hand[0].Suit == hand[1].Suit && hand[1].Suit == hand[2].Suit
}

// FlorPoints is 20 plus the envido values of all three cards, or 0 without flor.
func FlorPoints(hand []Card) int {
	if !HasFlor(hand) {
		return 0
	}
	pts := 20
	for _, c := range hand {
		pts += c.EnvidoValue()
	}
	return pts
}
