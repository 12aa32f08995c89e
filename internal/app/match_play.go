package app

import (
	"context"

	"truco/internal/domain"
	"truco/internal/ports"
)

const (
	ReasonTricks        = "tricks"
	ReasonFold          = "fold"
	ReasonTrucoDeclined = "truco_declined"
	ReasonEnvido        = "envido"
	ReasonFlor          = "flor"

	// abort reasons
	AbortPlayerLeft = "player_left"
	AbortShutdown   = "server_shutdown"
	AbortSignal     = "signal"
)

// StartNewHand deals a fresh hand. The first call records the match start.
func (m *Match) StartNewHand(ctx context.Context) error {
	return m.apply(ctx, "start_hand", func() ([]Event, error) {
		if m.state != domain.StateWaitingToStart && m.state != domain.StateHandEnd {
			return nil, ErrWrongState
		}
		return m.dealHand(), nil
	})
}

func (m *Match) dealHand() []Event {
	var events []Event
	n := len(m.players)
	if m.state == domain.StateWaitingToStart {
		m.dealer = n - 1
		m.pendingStart = m.startRecord()
		events = append(events, Event{
			Kind: EventMatchStarted,
			Payload: MatchStartedPayload{
				Code:         m.code,
				Players:      m.seatViews(),
				WinningScore: m.rules.WinningScore,
				FlorEnabled:  m.rules.FlorEnabled,
			},
		})
	} else {
		m.dealer = m.seatAfter(m.dealer)
	}

	m.state = domain.StateDealing
	m.handNumber++
	m.mano = m.seatAfter(m.dealer)
	m.deck.Reset()
	for i := 0; i < n; i++ {
		pl := m.players[(m.mano+i)%n]
		pl.Hand = m.deck.DealHand()
		pl.Dealt = append([]domain.Card(nil), pl.Hand...)
	}

	m.table, m.tricks = nil, nil
	m.handValue = 1
	m.truco.Reset()
	m.envido.Reset()
	m.flor.Reset()
	if !m.rules.FlorEnabled {
		m.flor.Close()
	}
	m.turn, m.leader = m.mano, m.mano
	m.state = domain.StateEnvido

	events = append(events, Event{
		Kind: EventHandStarted,
		Payload: HandStartedPayload{
			Hand:   m.handNumber,
			Dealer: m.players[m.dealer].ID,
			Mano:   m.players[m.mano].ID,
		},
	})
	for _, pl := range m.players {
		events = append(events, Event{
			Kind: EventHandDealt,
			Payload: HandDealtPayload{
				PlayerID:     pl.ID,
				Cards:        append([]domain.Card(nil), pl.Hand...),
				EnvidoPoints: domain.EnvidoPoints(pl.Dealt),
				HasFlor:      m.rules.FlorEnabled && domain.HasFlor(pl.Dealt),
			},
			Recipients: []string{pl.ID},
		})
	}
	m.logger.Debug("match %s: hand %d dealt, mano %s", m.code, m.handNumber, m.players[m.mano].ID)
	return events
}

func (m *Match) startRecord() *ports.MatchStart {
	rec := &ports.MatchStart{
		MatchCode:    m.code,
		LobbyID:      m.lobbyID,
		WinningScore: m.rules.WinningScore,
		StartedAt:    m.now(),
	}
	for _, pl := range m.players {
		rec.Players = append(rec.Players, ports.PlayerRecord{
			PlayerID: pl.ID,
			Name:     pl.Name,
			Team:     int(pl.Team),
			Seat:     pl.Seat,
		})
	}
	return rec
}

// PlayCard puts a card from the player's hand on the table.
func (m *Match) PlayCard(ctx context.Context, playerID string, card domain.Card) error {
	return m.apply(ctx, "play_card", func() ([]Event, error) {
		pl, err := m.player(playerID)
		if err != nil {
			return nil, err
		}
		if m.state != domain.StateEnvido && m.state != domain.StatePlaying {
			return nil, ErrWrongState
		}
		if m.pendingLadder() != nil {
			return nil, ErrCallPending
		}
		if m.players[m.turn].ID != playerID {
			return nil, ErrNotYourTurn
		}
		hand, ok := domain.RemoveCard(pl.Hand, card)
		if !ok {
			return nil, ErrCardNotInHand
		}

		pl.Hand = hand
		m.table = append(m.table, domain.Play{PlayerID: pl.ID, Team: pl.Team, Card: card})
		played := CardPlayedPayload{PlayerID: pl.ID, Card: card, Trick: len(m.tricks) + 1}
		if len(m.table) < len(m.players) {
			m.turn = m.seatAfter(m.turn)
			played.NextTurn = m.players[m.turn].ID
			return []Event{{Kind: EventCardPlayed, Payload: played}}, nil
		}
		return append([]Event{{Kind: EventCardPlayed, Payload: played}}, m.closeTrick()...), nil
	})
}

func (m *Match) closeTrick() []Event {
	winner, idx := domain.ResolveTrick(m.table)
	m.state = domain.StateRoundEnd
	m.tricks = append(m.tricks, winner)

	ended := TrickEndedPayload{
		Trick:  len(m.tricks),
		Plays:  m.table,
		Winner: winner,
		Parda:  winner == domain.TeamNone,
	}
	if idx >= 0 {
		ended.WinnerID = m.table[idx].PlayerID
		m.leader = m.byID[ended.WinnerID].Seat
	}
	m.table = nil

	// envido and flor can only be sung during the first trick
	m.envido.Close()
	m.flor.Close()

	if team, done := domain.HandWinner(m.tricks, m.manoTeam()); done {
		events := []Event{{Kind: EventTrickEnded, Payload: ended}}
		return append(events, m.finishHand(team, m.handValue, ReasonTricks)...)
	}
	m.turn = m.leader
	m.state = domain.StatePlaying
	ended.NextTurn = m.players[m.turn].ID
	return []Event{{Kind: EventTrickEnded, Payload: ended}}
}

// finishHand awards the hand and moves to HandEnd unless the award ended the match.
func (m *Match) finishHand(team domain.Team, points int, reason string) []Event {
	events := m.award(team, points, reason)
	if m.state.Terminal() {
		return events
	}
	m.state = domain.StateHandEnd
	m.truco.Close()
	m.envido.Close()
	m.flor.Close()
	return append(events, Event{
		Kind: EventHandEnded,
		Payload: HandEndedPayload{
			Hand:   m.handNumber,
			Winner: team,
			Points: points,
			Reason: reason,
			Scores: m.scores,
		},
	})
}

func (m *Match) award(team domain.Team, points int, reason string) []Event {
	m.scores[team.Index()] += points
	events := []Event{{
		Kind:    EventPointsAwarded,
		Payload: PointsAwardedPayload{Team: team, Points: points, Reason: reason, Scores: m.scores},
	}}
	if m.scores[team.Index()] >= m.rules.WinningScore {
		events = append(events, m.endMatch(team))
	}
	return events
}

func (m *Match) endMatch(team domain.Team) Event {
	m.state = domain.StateMatchEnd
	m.winner = team
	m.truco.Close()
	m.envido.Close()
	m.flor.Close()
	m.pendingResult = &ports.MatchResult{
		MatchCode:   m.code,
		WinningTeam: int(team),
		WinnerScore: m.scores[team.Index()],
		LoserScore:  m.scores[team.Opponent().Index()],
		Reason:      "score",
		EndedAt:     m.now(),
	}
	m.logger.Info("match %s: team %d wins %d-%d", m.code, team, m.scores[team.Index()], m.scores[team.Opponent().Index()])
	return Event{Kind: EventMatchEnded, Payload: MatchEndedPayload{Winner: team, Scores: m.scores}}
}

// GoToDeck folds the hand: the opposing team takes the accepted stake.
func (m *Match) GoToDeck(ctx context.Context, playerID string) error {
	return m.apply(ctx, "go_to_deck", func() ([]Event, error) {
		pl, err := m.player(playerID)
		if err != nil {
			return nil, err
		}
		if !m.state.HandInProgress() {
			return nil, ErrNoHandInProgress
		}
		m.truco.Close()
		m.envido.Close()
		m.flor.Close()
		events := []Event{{Kind: EventFolded, Payload: FoldedPayload{PlayerID: pl.ID, Team: pl.Team}}}
		return append(events, m.finishHand(pl.Team.Opponent(), m.handValue, ReasonFold)...), nil
	})
}

// AbortMatch ends the match from any non-terminal state. It records the
// result, notifies every player and is a no-op once the match is over.
func (m *Match) AbortMatch(ctx context.Context, reason string) error {
	if !m.closing.CompareAndSwap(false, true) {
		return nil
	}
	m.mu.Lock()
	if m.state.Terminal() {
		m.mu.Unlock()
		return nil
	}
	m.enqueue(ctx, m.seal(m.abort(reason)))
	m.mu.Unlock()
	m.drain()
	return nil
}

func (m *Match) abort(reason string) []Event {
	winner := domain.TeamNone
	if m.rules.AbortPolicy == AbortLeaderWins && m.scores[0] != m.scores[1] {
		winner = domain.Team1
		if m.scores[1] > m.scores[0] {
			winner = domain.Team2
		}
	}
	hi, lo := m.scores[0], m.scores[1]
	if winner == domain.Team2 || (winner == domain.TeamNone && lo > hi) {
		hi, lo = lo, hi
	}

	m.state = domain.StateAborted
	m.winner = winner
	m.truco.Close()
	m.envido.Close()
	m.flor.Close()
	m.pendingResult = &ports.MatchResult{
		MatchCode:   m.code,
		WinningTeam: int(winner),
		WinnerScore: hi,
		LoserScore:  lo,
		Aborted:     true,
		Reason:      reason,
		EndedAt:     m.now(),
	}
	m.logger.Info("match %s: aborted (%s)", m.code, reason)
	return []Event{{Kind: EventMatchAborted, Payload: MatchAbortedPayload{Reason: reason, Winner: winner, Scores: m.scores}}}
}
