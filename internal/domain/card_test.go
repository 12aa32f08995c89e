package domain

import (
	"encoding/json"
	"testing"
)

func TestCatalog(t *testing.T) {
	cards := Catalog()
	if len(cards) != DeckSize {
		t.Fatalf("len(Catalog()) = %d, want %d", len(cards), DeckSize)
	}
	seen := make(map[Card]bool)
	for _, c := range cards {
		if !c.Valid() {
			t.Fatalf("catalog holds invalid card %v", c)
		}
		if c.Rank == 8 || c.Rank == 9 {
			t.Fatalf("catalog holds %v", c)
		}
		if seen[c] {
			t.Fatalf("duplicate card %v", c)
		}
		seen[c] = true
	}
}

func TestTrickPowerOrder(t *testing.T) {
	// strongest first; cards in the same group tie
	groups := [][]Card{
		{{Swords, 1}},
		{{Clubs, 1}},
		{{Swords, 7}},
		{{Coins, 7}},
		{{Cups, 7}, {Clubs, 7}},
		{{Swords, 3}, {Clubs, 3}, {Cups, 3}, {Coins, 3}},
		{{Swords, 2}, {Clubs, 2}, {Cups, 2}, {Coins, 2}},
		{{Cups, 1}, {Coins, 1}},
		{{Swords, 12}, {Clubs, 12}, {Cups, 12}, {Coins, 12}},
		{{Swords, 11}, {Clubs, 11}, {Cups, 11}, {Coins, 11}},
		{{Swords, 10}, {Clubs, 10}, {Cups, 10}, {Coins, 10}},
		{{Swords, 6}, {Clubs, 6}, {Cups, 6}, {Coins, 6}},
		{{Swords, 5}, {Clubs, 5}, {Cups, 5}, {Coins, 5}},
		{{Swords, 4}, {Clubs, 4}, {Cups, 4}, {Coins, 4}},
	}
	total := 0
	for gi, g := range groups {
		total += len(g)
		for _, c := range g {
			if c.TrickPower() != g[0].TrickPower() {
				t.Fatalf("%v and %v should tie", c, g[0])
			}
			if gi > 0 && c.TrickPower() >= groups[gi-1][0].TrickPower() {
				t.Fatalf("%v should rank below %v", c, groups[gi-1][0])
			}
		}
	}
	if total != DeckSize {
		t.Fatalf("power groups cover %d cards, want %d", total, DeckSize)
	}
}

func TestEnvidoValue(t *testing.T) {
	tests := []struct {
		card Card
		want int
	}{
		{Card{Cups, 1}, 1},
		{Card{Coins, 7}, 7},
		{Card{Swords, 10}, 0},
		{Card{Clubs, 11}, 0},
		{Card{Cups, 12}, 0},
	}
	for _, tt := range tests {
		if got := tt.card.EnvidoValue(); got != tt.want {
			t.Fatalf("%v.EnvidoValue() = %d, want %d", tt.card, got, tt.want)
		}
	}
}

func TestParseCardID(t *testing.T) {
	for _, c := range Catalog() {
		got, err := ParseCardID(c.ID())
		if err != nil {
			t.Fatalf("ParseCardID(%q): %v", c.ID(), err)
		}
		if got != c {
			t.Fatalf("ParseCardID(%q) = %v", c.ID(), got)
		}
	}
	for _, bad := range []string{"", "8-cups", "1-hearts", "x-swords", "swords"} {
		if _, err := ParseCardID(bad); err == nil {
			t.Fatalf("ParseCardID(%q) should fail", bad)
		}
	}
}

func TestCardJSON(t *testing.T) {
	b, err := json.Marshal(Card{Suit: Coins, Rank: 7})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"suit":"coins","rank":7}` {
		t.Fatalf("unexpected json %s", b)
	}
}

func TestRemoveCard(t *testing.T) {
	hand := []Card{{Swords, 1}, {Cups, 4}, {Coins, 12}}
	out, ok := RemoveCard(hand, Card{Cups, 4})
	if !ok || len(out) != 2 || ContainsCard(out, Card{Cups, 4}) {
		t.Fatalf("RemoveCard() = %v, %v", out, ok)
	}
	if len(hand) != 3 {
		t.Fatalf("input hand was modified: %v", hand)
	}
	if _, ok := RemoveCard(hand, Card{Clubs, 2}); ok {
		t.Fatalf("RemoveCard() removed a card not in hand")
	}
}
