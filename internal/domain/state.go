package domain

// GameState is the lifecycle stage of a Truco match.
type GameState string

const (
	StateWaitingToStart GameState = "waiting_to_start"
	StateDealing        GameState = "dealing"
	// StateEnvido is the first trick, while envido and flor may still be sung.
	StateEnvido   GameState = "envido"
	StatePlaying  GameState = "playing"
	StateRoundEnd GameState = "round_end"
	StateHandEnd  GameState = "hand_end"
	StateMatchEnd GameState = "match_end"
	StateAborted  GameState = "aborted"
)

// Terminal reports whether no further operation can change the match.
func (s GameState) Terminal() bool {
	return s == StateMatchEnd || s == StateAborted
}

// HandInProgress reports whether cards are out and the hand is undecided.
func (s GameState) HandInProgress() bool {
	return s == StateEnvido || s == StatePlaying || s == StateRoundEnd
}

// Team identifies one of the two partnerships. TeamNone marks a parda or an
// undeclared winner.
type Team int

const (
	TeamNone Team = 0
	Team1    Team = 1
	Team2    Team = 2
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	switch t {
	case Team1:
		return Team2
	case Team2:
		return Team1
	}
	return TeamNone
}

// Index maps a team onto a 0-based score slot.
func (t Team) Index() int { return int(t) - 1 }

// Party names who made or must answer a call.
type Party struct {
	PlayerID string
	Team     Team
}

// Player holds the per-match state of a participant.
type Player struct {
	ID   string
	Name string
	Team Team
	Seat int // 0-based, play proceeds in seat order

	Hand  []Card // cards still held
	Dealt []Card // the full hand as dealt, for envido and flor
}

// Party returns the player's call identity.
func (p *Player) Party() Party { return Party{PlayerID: p.ID, Team: p.Team} }
