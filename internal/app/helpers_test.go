package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"truco/internal/domain"
	"truco/internal/ports"
)

type recorder struct {
	mu      sync.Mutex
	updates map[string][]ports.Update
}

func newRecorder() *recorder { return &recorder{updates: make(map[string][]ports.Update)} }

func (r *recorder) Notify(_ context.Context, playerID string, u ports.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates[playerID] = append(r.updates[playerID], u)
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, us := range r.updates {
		n += len(us)
	}
	return n
}

func (r *recorder) last(playerID string) ports.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	us := r.updates[playerID]
	if len(us) == 0 {
		return ports.Update{}
	}
	return us[len(us)-1]
}

func (r *recorder) kinds(playerID string) []string {
	var out []string
	for _, ev := range r.last(playerID).Events {
		out = append(out, ev.Kind)
	}
	return out
}

type fakeStore struct {
	mu        sync.Mutex
	starts    []ports.MatchStart
	results   []ports.MatchResult
	startErr  error
	resultErr error
}

func (s *fakeStore) RecordMatchStart(_ context.Context, start ports.MatchStart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts = append(s.starts, start)
	if s.startErr != nil {
		return "", s.startErr
	}
	return "id-" + start.MatchCode, nil
}

func (s *fakeStore) RecordMatchResult(_ context.Context, res ports.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return s.resultErr
}

func (s *fakeStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

var errStoreDown = errors.New("store down")

type fixture struct {
	m     *Match
	rec   *recorder
	store *fakeStore
	reg   *Registry
}

// newFixture registers a match seating ids in order with alternating teams.
func newFixture(t *testing.T, shuffler domain.Shuffler, ids ...string) *fixture {
	t.Helper()
	f := &fixture{rec: newRecorder(), store: &fakeStore{}, reg: NewRegistry(nil)}
	seats := make([]PlayerSeat, len(ids))
	for i, id := range ids {
		seats[i] = PlayerSeat{ID: id, Name: "player " + id}
	}
	m, err := f.reg.Create(NewMatchParams{Code: "m1", LobbyID: "lobby", Players: seats},
		Deps{Notifier: f.rec, Store: f.store, Shuffler: shuffler})
	require.NoError(t, err)
	f.m = m
	return f
}

// arrange moves front to the top of deck, keeping the rest in catalog order.
func arrange(deck, front []domain.Card) {
	rest := make([]domain.Card, 0, len(deck))
	for _, c := range deck {
		if !domain.ContainsCard(front, c) {
			rest = append(rest, c)
		}
	}
	copy(deck, front)
	copy(deck[len(front):], rest)
}

// stack deals the given cards first on every hand.
func stack(front ...domain.Card) domain.Shuffler {
	return domain.ShuffleFunc(func(deck []domain.Card) { arrange(deck, front) })
}

func card(suit domain.Suit, rank domain.Rank) domain.Card {
	return domain.Card{Suit: suit, Rank: rank}
}

func hand(cards ...domain.Card) []domain.Card { return cards }

func join(hands ...[]domain.Card) []domain.Card {
	var out []domain.Card
	for _, h := range hands {
		out = append(out, h...)
	}
	return out
}

var (
	strongHand = hand(card(domain.Swords, 1), card(domain.Clubs, 1), card(domain.Swords, 7))
	weakHand   = hand(card(domain.Cups, 4), card(domain.Coins, 4), card(domain.Clubs, 5))
)
