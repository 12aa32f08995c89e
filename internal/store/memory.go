// Package store persists match lifecycle records outside Nakama.
package store

import (
	"context"
	"errors"
	"sync"

	"truco/internal/ports"

	"github.com/google/uuid"
)

var ErrMatchNotFound = errors.New("match record not found")

// Record is a match as the stores keep it.
type Record struct {
	ID     string
	Start  *ports.MatchStart
	Result *ports.MatchResult
}

// MemoryStore keeps records in process. Used by simulate and when no
// database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record
	order   []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) RecordMatchStart(_ context.Context, start ports.MatchStart) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	start.Players = append([]ports.PlayerRecord(nil), start.Players...)
	s.records[id] = &Record{ID: id, Start: &start}
	s.order = append(s.order, id)
	return id, nil
}

func (s *MemoryStore) RecordMatchResult(_ context.Context, result ports.MatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.MatchID == "" {
		id := uuid.NewString()
		s.records[id] = &Record{ID: id, Result: &result}
		s.order = append(s.order, id)
		return nil
	}
	rec, ok := s.records[result.MatchID]
	if !ok {
		return ErrMatchNotFound
	}
	rec.Result = &result
	return nil
}

// Get returns a copy of the record with the given id.
func (s *MemoryStore) Get(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrMatchNotFound
	}
	return *rec, nil
}

// Records lists every record in insertion order.
func (s *MemoryStore) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}

var _ ports.MatchStore = (*MemoryStore)(nil)
