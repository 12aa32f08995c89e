// Package session tracks where connected players can be reached.
package session

import (
	"context"
	"sync"
	"time"

	"truco/internal/ports"
)

type entry struct {
	channel string
	expires time.Time
}

// Memory is a process-local ports.SessionRegistry. Sessions expire ttl
// after their last Register or Touch.
type Memory struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, now: time.Now, sessions: make(map[string]entry)}
}

func (m *Memory) Register(_ context.Context, playerID, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[playerID] = entry{channel: channel, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Touch(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(playerID)
	if !ok {
		return ports.ErrSessionNotFound
	}
	e.expires = m.now().Add(m.ttl)
	m.sessions[playerID] = e
	return nil
}

func (m *Memory) Lookup(_ context.Context, playerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(playerID)
	if !ok {
		return "", ports.ErrSessionNotFound
	}
	return e.channel, nil
}

func (m *Memory) Alive(_ context.Context, playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live(playerID)
	return ok
}

func (m *Memory) Evict(_ context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, playerID)
	return nil
}

// live returns the unexpired session, dropping an expired one. Called with mu held.
func (m *Memory) live(playerID string) (entry, bool) {
	e, ok := m.sessions[playerID]
	if !ok {
		return entry{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.sessions, playerID)
		return entry{}, false
	}
	return e, true
}

var _ ports.SessionRegistry = (*Memory)(nil)
