package bot

import (
	"truco/internal/app"
	"truco/internal/domain"
)

// EasyBot accepts every call and plays its cards in hand order.
type EasyBot struct{}

func (b *EasyBot) Decide(view app.MatchView) (app.Command, bool) {
	me, ok := self(view)
	if !ok {
		return app.Command{}, false
	}
	if owesAnswer(view) {
		return respond(view, domain.Accept), true
	}
	if !myTurn(view) || len(me.Hand) == 0 {
		return app.Command{}, false
	}
	return playCard(view, me.Hand[0]), true
}

func self(view app.MatchView) (app.PlayerView, bool) {
	for _, pv := range view.Players {
		if pv.PlayerID == view.Viewer {
			return pv, true
		}
	}
	return app.PlayerView{}, false
}

func owesAnswer(view app.MatchView) bool {
	return view.Pending != nil && view.Pending.Responder == view.Viewer
}

// myTurn reports whether the viewer may play a card or open a call.
func myTurn(view app.MatchView) bool {
	if view.Pending != nil || view.Turn != view.Viewer {
		return false
	}
	return view.State == string(domain.StateEnvido) || view.State == string(domain.StatePlaying)
}

func respond(view app.MatchView, resp domain.Response) app.Command {
	return app.Command{
		Kind:     app.CmdRespond,
		PlayerID: view.Viewer,
		Protocol: view.Pending.Protocol,
		Response: resp.String(),
	}
}

func playCard(view app.MatchView, c domain.Card) app.Command {
	return app.Command{Kind: app.CmdPlayCard, PlayerID: view.Viewer, Card: c.ID()}
}

func call(view app.MatchView, kind app.CommandKind, rung domain.Rung) app.Command {
	return app.Command{Kind: kind, PlayerID: view.Viewer, Rung: rung.String()}
}

// tableBest returns the strongest card on the table and whether the
// viewer's team holds it alone.
func tableBest(view app.MatchView, team domain.Team) (int, bool) {
	best, ours, theirs := 0, false, false
	for _, p := range view.Table {
		power := p.Card.TrickPower()
		switch {
		case power > best:
			best = power
			ours, theirs = p.Team == team, p.Team != team
		case power == best:
			if p.Team == team {
				ours = true
			} else {
				theirs = true
			}
		}
	}
	return best, ours && !theirs
}
