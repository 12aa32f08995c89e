package app

import "truco/internal/domain"

// PlayerView is a participant as one viewer sees them. Hand is only filled
// for the viewer.
type PlayerView struct {
	SeatView
	CardsInHand  int           `json:"cards_in_hand"`
	Hand         []domain.Card `json:"hand,omitempty"`
	EnvidoPoints int           `json:"envido_points,omitempty"`
	HasFlor      bool          `json:"has_flor,omitempty"`
}

// CallView is the pending call as exposed to clients.
type CallView struct {
	Protocol  string `json:"protocol"`
	Rung      string `json:"rung"`
	Caller    string `json:"caller"`
	Responder string `json:"responder"`
}

// MatchView is a consistent per-viewer snapshot of the match.
type MatchView struct {
	Code          string        `json:"code"`
	MatchID       string        `json:"match_id,omitempty"`
	State         string        `json:"state"`
	Hand          int           `json:"hand"`
	Scores        [2]int        `json:"scores"`
	WinningScore  int           `json:"winning_score"`
	Winner        domain.Team   `json:"winner,omitempty"`
	Turn          string        `json:"turn,omitempty"`
	Mano          string        `json:"mano,omitempty"`
	HandValue     int           `json:"hand_value"`
	Table         []domain.Play `json:"table"`
	Tricks        []domain.Team `json:"tricks"`
	DeckRemaining int           `json:"deck_remaining"`
	Pending       *CallView     `json:"pending,omitempty"`
	EnvidoOpen    bool          `json:"envido_open"`
	FlorOpen      bool          `json:"flor_open"`
	TrucoNext     string        `json:"truco_next,omitempty"`
	CanCallTruco  bool          `json:"can_call_truco"`
	Players       []PlayerView  `json:"players"`
	Viewer        string        `json:"viewer,omitempty"`
}

// Snapshot returns the match as viewer sees it: their own hand in full,
// other players' hand sizes only.
func (m *Match) Snapshot(viewer string) MatchView {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := MatchView{
		Code:          m.code,
		MatchID:       m.MatchID(),
		State:         string(m.state),
		Hand:          m.handNumber,
		Scores:        m.scores,
		WinningScore:  m.rules.WinningScore,
		Winner:        m.winner,
		HandValue:     m.handValue,
		Table:         append([]domain.Play{}, m.table...),
		Tricks:        append([]domain.Team{}, m.tricks...),
		DeckRemaining: m.deck.Remaining(),
		Viewer:        viewer,
	}
	if m.handNumber > 0 {
		v.Mano = m.players[m.mano].ID
	}
	if m.state == domain.StateEnvido || m.state == domain.StatePlaying {
		v.Turn = m.players[m.turn].ID
		v.EnvidoOpen = m.state == domain.StateEnvido && !m.envido.Closed() && !m.envido.Started() &&
			!m.flor.Started() && m.truco.Accepted() == domain.RungNone
		v.FlorOpen = m.state == domain.StateEnvido && m.rules.FlorEnabled && !m.flor.Closed() &&
			!m.flor.Started() && !m.envido.Started()
		if next := m.truco.Next(); next != domain.RungNone && !m.truco.Closed() {
			v.TrucoNext = next.String()
		}
	}
	if l := m.pendingLadder(); l != nil {
		v.Pending = &CallView{
			Protocol:  l.Protocol().String(),
			Rung:      l.Current().String(),
			Caller:    l.Caller().PlayerID,
			Responder: l.Responder().PlayerID,
		}
	}

	var viewerTeam domain.Team
	for _, pl := range m.players {
		pv := PlayerView{
			SeatView:    SeatView{PlayerID: pl.ID, Name: pl.Name, Team: pl.Team, Seat: pl.Seat},
			CardsInHand: len(pl.Hand),
		}
		if pl.ID == viewer {
			viewerTeam = pl.Team
			pv.Hand = append([]domain.Card{}, pl.Hand...)
			pv.EnvidoPoints = domain.EnvidoPoints(pl.Dealt)
			pv.HasFlor = m.rules.FlorEnabled && domain.HasFlor(pl.Dealt)
		}
		v.Players = append(v.Players, pv)
	}
	v.CanCallTruco = viewerTeam != domain.TeamNone && m.truco.CanCall(viewerTeam)
	return v
}
