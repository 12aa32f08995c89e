package bot

import (
	"context"
	"errors"
	"fmt"

	"truco/internal/app"
	"truco/internal/domain"
)

var ErrStalled = errors.New("no bot could act")

// Run plays m with agents until the match ends, dealing each hand as soon
// as the previous one is over. maxSteps bounds the number of actions.
func Run(ctx context.Context, m *app.Match, agents []*Agent, maxSteps int) error {
	for step := 0; step < maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		state := m.State()
		if state.Terminal() {
			return nil
		}
		if state == domain.StateWaitingToStart || state == domain.StateHandEnd {
			if err := m.StartNewHand(ctx); err != nil {
				return err
			}
			continue
		}

		acted := false
		for _, a := range agents {
			ok, err := a.Act(ctx, m)
			if err != nil && !app.IsIllegal(err) {
				return err
			}
			if ok {
				acted = true
				break
			}
		}
		if !acted {
			return fmt.Errorf("match %s in state %s: %w", m.Code(), state, ErrStalled)
		}
	}
	return fmt.Errorf("match %s did not finish in %d steps", m.Code(), maxSteps)
}

// Seats returns n bot seats in turn order, teams alternating.
func Seats(n int) []app.PlayerSeat {
	seats := make([]app.PlayerSeat, n)
	for i := range seats {
		identity := GetBotIdentity(i)
		seats[i] = app.PlayerSeat{ID: identity.UserID, Name: GetBotDisplayName(identity.UserID)}
	}
	return seats
}
