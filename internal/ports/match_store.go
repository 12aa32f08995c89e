package ports

import (
	"context"
	"time"
)

// PlayerRecord is a participant as persisted with the match.
type PlayerRecord struct {
	PlayerID string
	Name     string
	Team     int
	Seat     int
}

// MatchStart is recorded once, when the first hand is dealt.
type MatchStart struct {
	MatchCode    string
	LobbyID      string
	Players      []PlayerRecord
	WinningScore int
	StartedAt    time.Time
}

// MatchResult is recorded exactly once per match. WinningTeam is 0 when no
// winner was declared. MatchID is empty if the start was never recorded.
type MatchResult struct {
	MatchID     string
	MatchCode   string
	WinningTeam int
	WinnerScore int
	LoserScore  int
	Aborted     bool
	Reason      string
	EndedAt     time.Time
}

// MatchStore persists match lifecycle records.
type MatchStore interface {
	RecordMatchStart(ctx context.Context, start MatchStart) (string, error)
	RecordMatchResult(ctx context.Context, result MatchResult) error
}
