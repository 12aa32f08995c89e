package domain

const (
	DeckSize = 40
	HandSize = 3
)

// Deck is the ordered sequence of cards not yet dealt.
type Deck struct {
	cards    []Card
	shuffler Shuffler
}

// NewDeck returns a full, shuffled deck. A nil shuffler falls back to a
// clock-seeded RandShuffler.
func NewDeck(shuffler Shuffler) *Deck {
	if shuffler == nil {
		shuffler = NewRandShuffler(nil)
	}
	d := &Deck{shuffler: shuffler}
	d.Reset()
	return d
}

// Reset restores all 40 cards and reshuffles.
func (d *Deck) Reset() {
	d.cards = Catalog()
	d.shuffler.Shuffle(d.cards)
}

// DealHand removes and returns up to three cards from the top.
func (d *Deck) DealHand() []Card {
	n := HandSize
	if len(d.cards) < n {
		n = len(d.cards)
	}
	hand := make([]Card, n)
	copy(hand, d.cards[:n])
	d.cards = d.cards[n:]
	return hand
}

// DrawCard removes the top card. ok is false once the deck is exhausted.
func (d *Deck) DrawCard() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	c := d.cards[0]
	d.cards = d.cards[1:]
	return c, true
}

func (d *Deck) Remaining() int { return len(d.cards) }
