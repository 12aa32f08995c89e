package bot

import (
	"context"

	"truco/internal/app"
	"truco/internal/domain"
)

// Agent represents an autonomous bot player.
type Agent struct {
	ID       string
	Name     string
	Strategy Brain
}

// NewAgent builds the agent for a bot id, picking its brain from the
// identity's difficulty.
func NewAgent(id string) (*Agent, error) {
	identity, ok := GetBotConfig(id)
	level := BotLevelGood
	name := id
	if ok {
		level = ParseLevel(identity.Difficulty)
		name = GetBotDisplayName(id)
	}
	brain, err := NewBrain(level)
	if err != nil {
		return nil, err
	}
	return &Agent{ID: id, Name: name, Strategy: brain}, nil
}

// Act lets the agent take at most one action in m and reports whether it
// did. When the brain's choice is rejected the agent falls back to the
// first legal alternative it can find.
func (a *Agent) Act(ctx context.Context, m *app.Match) (bool, error) {
	view := m.Snapshot(a.ID)
	cmd, ok := a.Strategy.Decide(view)
	if !ok {
		return false, nil
	}
	err := m.Execute(ctx, cmd)
	if err == nil {
		return true, nil
	}
	if !app.IsIllegal(err) {
		return false, err
	}
	for _, alt := range fallbacks(view) {
		if m.Execute(ctx, alt) == nil {
			return true, nil
		}
	}
	return false, err
}

func fallbacks(view app.MatchView) []app.Command {
	var out []app.Command
	if owesAnswer(view) {
		out = append(out, respond(view, domain.Accept), respond(view, domain.Decline))
	}
	if me, ok := self(view); ok && myTurn(view) {
		for _, c := range me.Hand {
			out = append(out, playCard(view, c))
		}
	}
	if len(out) > 0 {
		out = append(out, app.Command{Kind: app.CmdGoToDeck, PlayerID: view.Viewer})
	}
	return out
}
