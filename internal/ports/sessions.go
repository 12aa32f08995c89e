package ports

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRegistry tracks where a player's connection can be reached. A
// notifier checks Alive before delivering and evicts sessions that fail.
type SessionRegistry interface {
	Register(ctx context.Context, playerID, channel string) error
	Touch(ctx context.Context, playerID string) error
	Lookup(ctx context.Context, playerID string) (string, error)
	Alive(ctx context.Context, playerID string) bool
	Evict(ctx context.Context, playerID string) error
}
