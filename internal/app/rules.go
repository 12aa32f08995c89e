package app

import "truco/internal/config"

// AbortPolicy decides who, if anyone, wins an aborted match.
type AbortPolicy string

const (
	AbortNoWinner   AbortPolicy = "no_winner"
	AbortLeaderWins AbortPolicy = "leader"
)

const (
	DefaultWinningScore = 30
	MinPlayers          = 2
	MaxPlayers          = 6
)

// Rules are the per-match tunables.
type Rules struct {
	WinningScore int
	FlorEnabled  bool
	AbortPolicy  AbortPolicy
}

func DefaultRules() Rules {
	return Rules{WinningScore: DefaultWinningScore, FlorEnabled: true, AbortPolicy: AbortNoWinner}
}

// RulesFromConfig converts the game config section, falling back to defaults
// for unset or unknown values.
func RulesFromConfig(g config.GameConfig) Rules {
	r := DefaultRules()
	if g.WinningScore > 0 {
		r.WinningScore = g.WinningScore
	}
	r.FlorEnabled = g.FlorEnabled
	if AbortPolicy(g.AbortPolicy) == AbortLeaderWins {
		r.AbortPolicy = AbortLeaderWins
	}
	return r
}
