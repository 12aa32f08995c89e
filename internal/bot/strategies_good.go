package bot

import (
	"sort"

	"truco/internal/app"
	"truco/internal/domain"
)

// Thresholds are trick powers (see domain.Card.TrickPower) or envido points.
const (
	acceptEnvidoAt = 27
	raiseEnvidoAt  = 31
	callEnvidoAt   = 30
	acceptTrucoAt  = 9  // a three or better
	raiseTrucoAt   = 12 // seven of swords or better
)

// GoodBot sings its flor, bets on strong envido and truco hands and plays
// the cheapest card that takes the trick.
type GoodBot struct{}

func (b *GoodBot) Decide(view app.MatchView) (app.Command, bool) {
	me, ok := self(view)
	if !ok {
		return app.Command{}, false
	}
	if owesAnswer(view) {
		return b.answer(view, me), true
	}
	if !myTurn(view) || len(me.Hand) == 0 {
		return app.Command{}, false
	}

	switch {
	case me.HasFlor && view.FlorOpen:
		return call(view, app.CmdCallFlor, domain.Flor), true
	case view.EnvidoOpen && me.EnvidoPoints >= callEnvidoAt:
		return call(view, app.CmdCallEnvido, domain.Envido), true
	case view.CanCallTruco && view.TrucoNext == domain.Truco.String() && topPower(me.Hand) >= raiseTrucoAt:
		return call(view, app.CmdCallTruco, domain.Truco), true
	}
	return playCard(view, b.pick(view, me)), true
}

func (b *GoodBot) answer(view app.MatchView, me app.PlayerView) app.Command {
	switch view.Pending.Protocol {
	case domain.ProtocolEnvido.String():
		if me.EnvidoPoints >= raiseEnvidoAt && view.Pending.Rung == domain.Envido.String() {
			return respond(view, domain.Raise)
		}
		if me.EnvidoPoints >= acceptEnvidoAt {
			return respond(view, domain.Accept)
		}
		return respond(view, domain.Decline)
	case domain.ProtocolFlor.String():
		return respond(view, domain.Accept)
	}

	top := topPower(me.Hand)
	if top >= raiseTrucoAt && view.Pending.Rung == domain.Truco.String() {
		return respond(view, domain.Raise)
	}
	if top >= acceptTrucoAt {
		return respond(view, domain.Accept)
	}
	return respond(view, domain.Decline)
}

// pick leads with the strongest card. Following, it lets a partner's
// winning card stand and otherwise takes the trick as cheaply as possible.
func (b *GoodBot) pick(view app.MatchView, me app.PlayerView) domain.Card {
	hand := byPower(me.Hand)
	if len(view.Table) == 0 {
		return hand[len(hand)-1]
	}
	best, ours := tableBest(view, me.Team)
	if ours {
		return hand[0]
	}
	for _, c := range hand {
		if c.TrickPower() > best {
			return c
		}
	}
	return hand[0]
}

func byPower(hand []domain.Card) []domain.Card {
	out := append([]domain.Card(nil), hand...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TrickPower() < out[j].TrickPower() })
	return out
}

func topPower(hand []domain.Card) int {
	top := 0
	for _, c := range hand {
		if p := c.TrickPower(); p > top {
			top = p
		}
	}
	return top
}
