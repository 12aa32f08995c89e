package app

import (
	"context"
	"errors"

	"truco/internal/domain"
)

// CallTruco opens or raises the Truco ladder. The current responder may use
// it to raise instead of answering.
func (m *Match) CallTruco(ctx context.Context, playerID string, rung domain.Rung) error {
	return m.apply(ctx, "call_truco", func() ([]Event, error) {
		pl, err := m.player(playerID)
		if err != nil {
			return nil, err
		}
		if m.state != domain.StateEnvido && m.state != domain.StatePlaying {
			return nil, ErrWrongState
		}
		if rung.Protocol() != domain.ProtocolTruco {
			return nil, illegalCall(domain.ErrRungOutOfOrder)
		}
		if m.truco.Pending() && m.truco.Responder().PlayerID == playerID {
			return m.raise(pl, m.truco, rung)
		}
		if err := m.checkNewCall(playerID); err != nil {
			return nil, err
		}
		responder := m.nextOpponent(pl, nil)
		if err := m.truco.Call(pl.Party(), responder.Party(), rung); err != nil {
			return nil, illegalCall(err)
		}
		return []Event{m.callMade(m.truco, false)}, nil
	})
}

// CallEnvido opens or raises the Envido ladder during the first trick.
func (m *Match) CallEnvido(ctx context.Context, playerID string, rung domain.Rung) error {
	return m.apply(ctx, "call_envido", func() ([]Event, error) {
		pl, err := m.player(playerID)
		if err != nil {
			return nil, err
		}
		if m.state != domain.StateEnvido {
			return nil, ErrWrongState
		}
		if rung.Protocol() != domain.ProtocolEnvido {
			return nil, illegalCall(domain.ErrRungOutOfOrder)
		}
		if m.envido.Pending() && m.envido.Responder().PlayerID == playerID {
			return m.raise(pl, m.envido, rung)
		}
		if err := m.checkNewCall(playerID); err != nil {
			return nil, err
		}
		if m.truco.Accepted() != domain.RungNone || m.flor.Started() {
			return nil, illegalCall(domain.ErrLadderClosed)
		}
		responder := m.nextOpponent(pl, nil)
		if err := m.envido.Call(pl.Party(), responder.Party(), rung); err != nil {
			return nil, illegalCall(err)
		}
		return []Event{m.callMade(m.envido, false)}, nil
	})
}

// CallFlor sings flor, or raises to Contra Flor when answering one. Flor
// closes the envido window. Without an opposing flor the caller's team
// scores at once and nothing is left pending.
func (m *Match) CallFlor(ctx context.Context, playerID string, rung domain.Rung) error {
	return m.apply(ctx, "call_flor", func() ([]Event, error) {
		pl, err := m.player(playerID)
		if err != nil {
			return nil, err
		}
		if !m.rules.FlorEnabled {
			return nil, illegalCall(domain.ErrLadderClosed)
		}
		if m.state != domain.StateEnvido {
			return nil, ErrWrongState
		}
		if rung.Protocol() != domain.ProtocolFlor {
			return nil, illegalCall(domain.ErrRungOutOfOrder)
		}
		if m.flor.Pending() && m.flor.Responder().PlayerID == playerID {
			return m.raise(pl, m.flor, rung)
		}
		if err := m.checkNewCall(playerID); err != nil {
			return nil, err
		}
		if !domain.HasFlor(pl.Dealt) {
			return nil, ErrNoFlor
		}
		if m.envido.Started() {
			return nil, illegalCall(domain.ErrLadderClosed)
		}
		if m.flor.Closed() || m.flor.Started() {
			return nil, illegalCall(domain.ErrLadderClosed)
		}
		if rung != m.flor.Next() {
			return nil, illegalCall(domain.ErrRungOutOfOrder)
		}

		responder := m.nextOpponent(pl, holdsFlor)
		if responder == nil {
			m.envido.Close()
			m.flor.Close()
			value := m.flor.Value(domain.Flor, 0)
			events := []Event{{
				Kind: EventCallMade,
				Payload: CallMadePayload{
					Protocol: domain.ProtocolFlor.String(),
					Rung:     domain.Flor.String(),
					Caller:   pl.ID,
					Value:    value,
				},
			}}
			return append(events, m.award(pl.Team, value, ReasonFlor)...), nil
		}
		if err := m.flor.Call(pl.Party(), responder.Party(), rung); err != nil {
			return nil, illegalCall(err)
		}
		m.envido.Close()
		return []Event{m.callMade(m.flor, false)}, nil
	})
}

func holdsFlor(pl *domain.Player) bool { return domain.HasFlor(pl.Dealt) }

// checkNewCall enforces a single outstanding call and the trick turn.
func (m *Match) checkNewCall(playerID string) error {
	if m.pendingLadder() != nil {
		return ErrCallPending
	}
	if m.players[m.turn].ID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

// raise climbs a pending ladder on behalf of its responder. The next
// opponent of the raiser owes the answer.
func (m *Match) raise(pl *domain.Player, l *domain.Ladder, rung domain.Rung) ([]Event, error) {
	var ok func(*domain.Player) bool
	if l.Protocol() == domain.ProtocolFlor {
		ok = holdsFlor
	}
	next := m.nextOpponent(pl, ok)
	if next == nil {
		return nil, illegalCall(domain.ErrWrongResponder)
	}
	if err := l.Raise(pl.ID, rung, next.Party()); err != nil {
		return nil, illegalCall(err)
	}
	return []Event{m.callMade(l, true)}, nil
}

func (m *Match) callMade(l *domain.Ladder, raise bool) Event {
	return Event{
		Kind: EventCallMade,
		Payload: CallMadePayload{
			Protocol:  l.Protocol().String(),
			Rung:      l.Current().String(),
			Caller:    l.Caller().PlayerID,
			Responder: l.Responder().PlayerID,
			Value:     l.Value(l.Current(), m.falta()),
			Raise:     raise,
		},
	}
}

// RespondToCall answers a pending Truco call.
func (m *Match) RespondToCall(ctx context.Context, playerID string, resp domain.Response) error {
	return m.Respond(ctx, playerID, domain.ProtocolTruco, resp)
}

// RespondToEnvido answers a pending Envido call.
func (m *Match) RespondToEnvido(ctx context.Context, playerID string, resp domain.Response) error {
	return m.Respond(ctx, playerID, domain.ProtocolEnvido, resp)
}

// RespondToFlor answers a pending Flor call.
func (m *Match) RespondToFlor(ctx context.Context, playerID string, resp domain.Response) error {
	return m.Respond(ctx, playerID, domain.ProtocolFlor, resp)
}

// Respond answers the pending call of the given protocol. Raise climbs to
// the next rung.
func (m *Match) Respond(ctx context.Context, playerID string, protocol domain.Protocol, resp domain.Response) error {
	return m.apply(ctx, "respond_"+protocol.String(), func() ([]Event, error) {
		pl, err := m.player(playerID)
		if err != nil {
			return nil, err
		}
		l := m.ladder(protocol)
		if !l.Pending() {
			return nil, ErrNoPendingCall
		}
		if l.Responder().PlayerID != playerID {
			return nil, ErrNotResponder
		}
		switch resp {
		case domain.Accept:
			return m.accept(pl, l)
		case domain.Decline:
			return m.decline(pl, l)
		case domain.Raise:
			next := l.Next()
			if next == domain.RungNone {
				return nil, illegalCall(domain.ErrLadderTop)
			}
			return m.raise(pl, l, next)
		}
		return nil, ErrBadCommand
	})
}

func (m *Match) answered(l *domain.Ladder, playerID string, resp domain.Response) Event {
	return Event{
		Kind: EventCallAnswered,
		Payload: CallAnsweredPayload{
			Protocol:  l.Protocol().String(),
			Rung:      l.Current().String(),
			Responder: playerID,
			Response:  resp.String(),
			HandValue: m.handValue,
		},
	}
}

func (m *Match) accept(pl *domain.Player, l *domain.Ladder) ([]Event, error) {
	rung, err := l.Accept(pl.ID)
	if err != nil {
		return nil, illegalCall(err)
	}
	if l.Protocol() == domain.ProtocolTruco {
		m.handValue = l.Value(rung, 0)
		return []Event{m.answered(l, pl.ID, domain.Accept)}, nil
	}

	value := l.Value(rung, m.falta())
	l.Close()
	var points [2]int
	var winner domain.Team
	reason := ReasonEnvido
	if l.Protocol() == domain.ProtocolFlor {
		points = m.teamBest(domain.FlorPoints)
		reason = ReasonFlor
	} else {
		points = m.teamBest(domain.EnvidoPoints)
	}
	switch {
	case points[0] > points[1]:
		winner = domain.Team1
	case points[1] > points[0]:
		winner = domain.Team2
	default:
		winner = m.manoTeam()
	}
	events := []Event{
		m.answered(l, pl.ID, domain.Accept),
		{Kind: EventPointsShown, Payload: PointsShownPayload{Protocol: l.Protocol().String(), Points: points, Winner: winner}},
	}
	return append(events, m.award(winner, value, reason)...), nil
}

func (m *Match) decline(pl *domain.Player, l *domain.Ladder) ([]Event, error) {
	caller := l.Caller().Team
	pts, err := l.Decline(pl.ID, m.falta())
	if err != nil {
		return nil, illegalCall(err)
	}
	events := []Event{m.answered(l, pl.ID, domain.Decline)}
	if l.Protocol() == domain.ProtocolTruco {
		return append(events, m.finishHand(caller, pts, ReasonTrucoDeclined)...), nil
	}
	reason := ReasonEnvido
	if l.Protocol() == domain.ProtocolFlor {
		reason = ReasonFlor
	}
	return append(events, m.award(caller, pts, reason)...), nil
}

// teamBest returns each team's best score under fn, from the dealt hands.
func (m *Match) teamBest(fn func([]domain.Card) int) [2]int {
	var best [2]int
	for _, pl := range m.players {
		if v := fn(pl.Dealt); v > best[pl.Team.Index()] {
			best[pl.Team.Index()] = v
		}
	}
	return best
}

// IsIllegal reports whether err is a rejected action rather than a fault.
func IsIllegal(err error) bool { return errors.Is(err, ErrIllegalAction) }
