package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Suit is one of the four Spanish-deck suits.
type Suit int

const (
	Swords Suit = iota
	Clubs
	Cups
	Coins
)

var suitNames = [...]string{"swords", "clubs", "cups", "coins"}

// Suits lists the suits in catalog order.
var Suits = []Suit{Swords, Clubs, Cups, Coins}

func (s Suit) String() string {
	if s < Swords || s > Coins {
		return "suit(" + strconv.Itoa(int(s)) + ")"
	}
	return suitNames[s]
}

// ParseSuit maps a suit name back to its value.
func ParseSuit(name string) (Suit, bool) {
	for i, n := range suitNames {
		if n == name {
			return Suit(i), true
		}
	}
	return 0, false
}

func (s Suit) MarshalText() ([]byte, error) {
	if s < Swords || s > Coins {
		return nil, fmt.Errorf("invalid suit %d", int(s))
	}
	return []byte(suitNames[s]), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	v, ok := ParseSuit(string(b))
	if !ok {
		return fmt.Errorf("invalid suit %q", string(b))
	}
	*s = v
	return nil
}

// Rank is the printed card number. The Spanish 40-card deck has no 8s or 9s.
type Rank int

// Ranks lists the ranks in catalog order.
var Ranks = []Rank{1, 2, 3, 4, 5, 6, 7, 10, 11, 12}

// Card is a single card of the 40-card deck. The zero value is not a valid card.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// Valid reports whether the card belongs to the 40-card catalog.
func (c Card) Valid() bool {
	if c.Suit < Swords || c.Suit > Coins {
		return false
	}
	return (c.Rank >= 1 && c.Rank <= 7) || (c.Rank >= 10 && c.Rank <= 12)
}

// ID is the stable wire identifier of a card, e.g. "7-coins".
func (c Card) ID() string {
	return strconv.Itoa(int(c.Rank)) + "-" + c.Suit.String()
}

func (c Card) String() string { return c.ID() }

// ParseCardID is the inverse of Card.ID.
func ParseCardID(id string) (Card, error) {
	rank, suit, ok := strings.Cut(id, "-")
	if !ok {
		return Card{}, fmt.Errorf("malformed card id %q", id)
	}
	r, err := strconv.Atoi(rank)
	if err != nil {
		return Card{}, fmt.Errorf("malformed card id %q: %w", id, err)
	}
	s, ok := ParseSuit(suit)
	if !ok {
		return Card{}, fmt.Errorf("malformed card id %q: unknown suit", id)
	}
	c := Card{Suit: s, Rank: Rank(r)}
	if !c.Valid() {
		return Card{}, fmt.Errorf("card %q is not part of the deck", id)
	}
	return c, nil
}

// TrickPower ranks a card for trick resolution. Higher beats lower; equal
// powers tie. Order: 1 swords, 1 clubs, 7 swords, 7 coins, 7 cups/clubs,
// 3s, 2s, 1 cups/coins, 12s, 11s, 10s, 6s, 5s, 4s.
func (c Card) TrickPower() int {
	switch {
	case c.Rank == 1 && c.Suit == Swords:
		return 14
	case c.Rank == 1 && c.Suit == Clubs:
		return 13
	case c.Rank == 7 && c.Suit == Swords:
		return 12
	case c.Rank == 7 && c.Suit == Coins:
		return 11
	}
	switch c.Rank {
	case 7:
		return 10
	case 3:
		return 9
	case 2:
		return 8
	case 1:
		return 7
	case 12:
		return 6
	case 11:
		return 5
	case 10:
		return 4
	case 6:
		return 3
	case 5:
		return 2
	case 4:
		return 1
	}
	return 0
}

// EnvidoValue is the card's contribution to envido: face value for 1..7,
// zero for 10, 11 and 12.
func (c Card) EnvidoValue() int {
	if c.Rank >= 10 {
		return 0
	}
	return int(c.Rank)
}

// Catalog returns the 40 cards in suit-major, rank-minor order.
func Catalog() []Card {
	cards := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			cards = append(cards, Card{Suit: s, Rank: r})
		}
	}
	return cards
}

// RemoveCard returns hand without the first copy of c.
func RemoveCard(hand []Card, c Card) ([]Card, bool) {
	for i := range hand {
		if hand[i] == c {
			out := make([]Card, 0, len(hand)-1)
			out = append(out, hand[:i]...)
			return append(out, hand[i+1:]...), true
		}
	}
	return hand, false
}

// ContainsCard reports whether hand holds c.
func ContainsCard(hand []Card, c Card) bool {
	for _, h := range hand {
		if h == c {
			return true
		}
	}
	return false
}
