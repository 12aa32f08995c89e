package domain

import (
	"math/rand"
	"sync"
	"time"
)

// Shuffler permutes a card slice in place.
type Shuffler interface {
	Shuffle(cards []Card)
}

// ShuffleFunc adapts a plain function to Shuffler.
type ShuffleFunc func(cards []Card)

func (f ShuffleFunc) Shuffle(cards []Card) {
	if f != nil {
		f(cards)
	}
}

// NoShuffle leaves the cards in catalog order.
var NoShuffle Shuffler = ShuffleFunc(func([]Card) {})

// RandShuffler is a Fisher-Yates shuffler over an injectable source. It is
// safe to share between matches.
type RandShuffler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandShuffler wraps rng; a nil rng is seeded from the clock.
func NewRandShuffler(rng *rand.Rand) *RandShuffler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandShuffler{rng: rng}
}

func (s *RandShuffler) Shuffle(cards []Card) {
	if len(cards) < 2 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(cards), func(i, j int) { cards[i], cards[j] = cards[j], cards[i] })
}
