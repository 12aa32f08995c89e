package app

import "truco/internal/domain"

// EventKind identifies emitted match events for dispatch.
type EventKind string

const (
	EventMatchStarted  EventKind = "match_started"
	EventHandStarted   EventKind = "hand_started"
	EventHandDealt     EventKind = "hand_dealt"
	EventCardPlayed    EventKind = "card_played"
	EventTrickEnded    EventKind = "trick_ended"
	EventHandEnded     EventKind = "hand_ended"
	EventCallMade      EventKind = "call_made"
	EventCallAnswered  EventKind = "call_answered"
	EventPointsShown   EventKind = "points_shown"
	EventPointsAwarded EventKind = "points_awarded"
	EventFolded        EventKind = "folded"
	EventMatchEnded    EventKind = "match_ended"
	EventMatchAborted  EventKind = "match_aborted"
)

// Event is a match event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // player IDs; empty means every participant
}

func (e Event) visibleTo(playerID string) bool {
	if len(e.Recipients) == 0 {
		return true
	}
	for _, r := range e.Recipients {
		if r == playerID {
			return true
		}
	}
	return false
}

type SeatView struct {
	PlayerID string      `json:"player_id"`
	Name     string      `json:"name"`
	Team     domain.Team `json:"team"`
	Seat     int         `json:"seat"`
}

type MatchStartedPayload struct {
	Code         string     `json:"code"`
	Players      []SeatView `json:"players"`
	WinningScore int        `json:"winning_score"`
	FlorEnabled  bool       `json:"flor_enabled"`
}

type HandStartedPayload struct {
	Hand   int    `json:"hand"`
	Dealer string `json:"dealer"`
	Mano   string `json:"mano"`
}

type HandDealtPayload struct {
	PlayerID     string        `json:"player_id"`
	Cards        []domain.Card `json:"cards"`
	EnvidoPoints int           `json:"envido_points"`
	HasFlor      bool          `json:"has_flor"`
}

type CardPlayedPayload struct {
	PlayerID string      `json:"player_id"`
	Card     domain.Card `json:"card"`
	Trick    int         `json:"trick"`
	NextTurn string      `json:"next_turn,omitempty"`
}

type TrickEndedPayload struct {
	Trick    int           `json:"trick"`
	Plays    []domain.Play `json:"plays"`
	Winner   domain.Team   `json:"winner"`
	WinnerID string        `json:"winner_id,omitempty"`
	Parda    bool          `json:"parda"`
	NextTurn string        `json:"next_turn,omitempty"`
}

type HandEndedPayload struct {
	Hand   int         `json:"hand"`
	Winner domain.Team `json:"winner"`
	Points int         `json:"points"`
	Reason string      `json:"reason"`
	Scores [2]int      `json:"scores"`
}

type CallMadePayload struct {
	Protocol  string `json:"protocol"`
	Rung      string `json:"rung"`
	Caller    string `json:"caller"`
	Responder string `json:"responder,omitempty"`
	Value     int    `json:"value"`
	Raise     bool   `json:"raise"`
}

type CallAnsweredPayload struct {
	Protocol  string `json:"protocol"`
	Rung      string `json:"rung"`
	Responder string `json:"responder"`
	Response  string `json:"response"`
	HandValue int    `json:"hand_value"`
}

// PointsShownPayload reveals each team's best envido or flor count when a
// contest is accepted.
type PointsShownPayload struct {
	Protocol string      `json:"protocol"`
	Points   [2]int      `json:"points"`
	Winner   domain.Team `json:"winner"`
}

type PointsAwardedPayload struct {
	Team   domain.Team `json:"team"`
	Points int         `json:"points"`
	Reason string      `json:"reason"`
	Scores [2]int      `json:"scores"`
}

type FoldedPayload struct {
	PlayerID string      `json:"player_id"`
	Team     domain.Team `json:"team"`
}

type MatchEndedPayload struct {
	Winner domain.Team `json:"winner"`
	Scores [2]int      `json:"scores"`
}

type MatchAbortedPayload struct {
	Reason string      `json:"reason"`
	Winner domain.Team `json:"winner"`
	Scores [2]int      `json:"scores"`
}
