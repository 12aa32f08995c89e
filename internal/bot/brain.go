package bot

import (
	"fmt"

	"truco/internal/app"
)

// BotLevel selects a strategy.
type BotLevel int

const (
	BotLevelEasy BotLevel = iota
	BotLevelGood
)

// ParseLevel maps an identity difficulty to a level. Unknown names are Good.
func ParseLevel(name string) BotLevel {
	if name == "easy" {
		return BotLevelEasy
	}
	return BotLevelGood
}

// Brain is the interface that all bot strategies must implement. Decide
// returns false when the viewer has nothing to do.
type Brain interface {
	Decide(view app.MatchView) (app.Command, bool)
}

// NewBrain creates a new AI brain based on the specified level.
func NewBrain(level BotLevel) (Brain, error) {
	switch level {
	case BotLevelEasy:
		return &EasyBot{}, nil
	case BotLevelGood:
		return &GoodBot{}, nil
	default:
		return nil, fmt.Errorf("unknown bot level: %d", level)
	}
}
