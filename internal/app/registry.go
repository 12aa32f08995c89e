package app

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrMatchExists   = errors.New("match code already registered")
	ErrMatchNotFound = errors.New("match not found")
)

// Registry indexes live matches by code and by player. Matches remove
// themselves once their terminal result has been persisted.
type Registry struct {
	mu       sync.RWMutex
	matches  map[string]*Match
	byPlayer map[string]string
	logger   Logger
}

func NewRegistry(logger Logger) *Registry {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Registry{
		matches:  make(map[string]*Match),
		byPlayer: make(map[string]string),
		logger:   logger,
	}
}

// Create builds a match and registers it.
func (r *Registry) Create(p NewMatchParams, deps Deps) (*Match, error) {
	if deps.Logger == nil {
		deps.Logger = r.logger
	}
	m, err := NewMatch(p, deps)
	if err != nil {
		return nil, err
	}
	if err := r.Add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Add registers m. A player already indexed under another match is moved
// to m.
func (r *Registry) Add(m *Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[m.code]; ok {
		return ErrMatchExists
	}
	r.matches[m.code] = m
	for _, pl := range m.players {
		if prev, ok := r.byPlayer[pl.ID]; ok && prev != m.code {
			r.logger.Warn("registry: player %s moved from match %s to %s", pl.ID, prev, m.code)
		}
		r.byPlayer[pl.ID] = m.code
	}
	m.onClose = func(done *Match) { r.Remove(done.code) }
	r.logger.Debug("registry: match %s added (%d live)", m.code, len(r.matches))
	return nil
}

// Get returns the match registered under code.
func (r *Registry) Get(code string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[code]
	return m, ok
}

// GetByPlayer returns the live match a player is seated in.
func (r *Registry) GetByPlayer(playerID string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	m, ok := r.matches[code]
	return m, ok
}

// Remove drops the match and the player index entries still pointing at it.
func (r *Registry) Remove(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[code]
	if !ok {
		return false
	}
	delete(r.matches, code)
	for _, pl := range m.players {
		if r.byPlayer[pl.ID] == code {
			delete(r.byPlayer, pl.ID)
		}
	}
	r.logger.Debug("registry: match %s removed (%d live)", code, len(r.matches))
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}

// Codes lists registered match codes in sorted order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]string, 0, len(r.matches))
	for c := range r.matches {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
