package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"truco/internal/domain"
	"truco/internal/ports"
)

// PlayerSeat is a lobby participant handed to NewMatch, in turn order.
type PlayerSeat struct {
	ID   string
	Name string
	Team domain.Team // TeamNone assigns teams by alternating seats
}

// NewMatchParams is what the lobby supplies to start a game.
type NewMatchParams struct {
	Code    string
	LobbyID string
	Players []PlayerSeat
	Rules   *Rules // nil means DefaultRules
}

// Deps are the collaborators a match reports to. Nil members fall back to
// no-op implementations.
type Deps struct {
	Notifier ports.Notifier
	Store    ports.MatchStore
	Logger   Logger
	Shuffler domain.Shuffler
	Now      func() time.Time
}

// Match is the authoritative state of one Truco game. All operations are
// safe for concurrent use.
type Match struct {
	mu      sync.Mutex
	emitMu  sync.Mutex // held by the goroutine draining outq
	closing atomic.Bool
	matchID atomic.Pointer[string]

	code    string
	lobbyID string
	rules   Rules

	players []*domain.Player
	byID    map[string]*domain.Player

	state      domain.GameState
	scores     [2]int
	winner     domain.Team
	deck       *domain.Deck
	handNumber int
	dealer     int
	mano       int
	turn       int
	leader     int
	table      []domain.Play
	tricks     []domain.Team
	handValue  int
	truco      *domain.Ladder
	envido     *domain.Ladder
	flor       *domain.Ladder
	seq        uint64
	outq       []outbox // sealed operations awaiting persistence and delivery, in seq order

	pendingStart  *ports.MatchStart
	pendingResult *ports.MatchResult

	notifier ports.Notifier
	store    ports.MatchStore
	logger   Logger
	now      func() time.Time
	onClose  func(*Match)
}

// NewMatch validates the lobby parameters and returns a match waiting for
// its first hand.
func NewMatch(p NewMatchParams, deps Deps) (*Match, error) {
	if p.Code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrInvalidMatch)
	}
	n := len(p.Players)
	if n < MinPlayers || n > MaxPlayers || n%2 != 0 {
		return nil, fmt.Errorf("%w: unsupported player count %d", ErrInvalidMatch, n)
	}

	m := &Match{
		code:      p.Code,
		lobbyID:   p.LobbyID,
		rules:     DefaultRules(),
		byID:      make(map[string]*domain.Player, n),
		state:     domain.StateWaitingToStart,
		deck:      domain.NewDeck(deps.Shuffler),
		handValue: 1,
		truco:     domain.NewTrucoLadder(),
		envido:    domain.NewEnvidoLadder(),
		flor:      domain.NewFlorLadder(),
		notifier:  deps.Notifier,
		store:     deps.Store,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if p.Rules != nil {
		m.rules = *p.Rules
		if m.rules.WinningScore <= 0 {
			m.rules.WinningScore = DefaultWinningScore
		}
		if m.rules.AbortPolicy == "" {
			m.rules.AbortPolicy = AbortNoWinner
		}
	}
	if m.notifier == nil {
		m.notifier = ports.NotifierFunc(func(context.Context, string, ports.Update) {})
	}
	if m.store == nil {
		m.store = nopStore{}
	}
	if m.logger == nil {
		m.logger = nopLogger{}
	}
	if m.now == nil {
		m.now = time.Now
	}

	for i, seat := range p.Players {
		if seat.ID == "" {
			return nil, fmt.Errorf("%w: seat %d has no player id", ErrInvalidMatch, i)
		}
		if _, dup := m.byID[seat.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate player %s", ErrInvalidMatch, seat.ID)
		}
		team := seat.Team
		if team == domain.TeamNone {
			team = domain.Team(i%2 + 1)
		}
		if team != domain.Team1 && team != domain.Team2 {
			return nil, fmt.Errorf("%w: player %s has invalid team %d", ErrInvalidMatch, seat.ID, team)
		}
		pl := &domain.Player{ID: seat.ID, Name: seat.Name, Team: team, Seat: i}
		m.players = append(m.players, pl)
		m.byID[seat.ID] = pl
	}
	for i, pl := range m.players {
		if next := m.players[(i+1)%n]; next.Team == pl.Team {
			return nil, fmt.Errorf("%w: teams must alternate seats", ErrInvalidMatch)
		}
	}
	return m, nil
}

type nopStore struct{}

func (nopStore) RecordMatchStart(context.Context, ports.MatchStart) (string, error) { return "", nil }
func (nopStore) RecordMatchResult(context.Context, ports.MatchResult) error         { return nil }

type delivery struct {
	playerID string
	update   ports.Update
}

type outbox struct {
	ctx        context.Context
	start      *ports.MatchStart
	result     *ports.MatchResult
	deliveries []delivery
	terminal   bool
}

// apply runs one operation under the match lock. fn must validate before it
// mutates: returning an error means nothing changed.
func (m *Match) apply(ctx context.Context, op string, fn func() ([]Event, error)) error {
	if m.closing.Load() {
		return ErrMatchClosed
	}
	m.mu.Lock()
	if m.closing.Load() || m.state.Terminal() {
		m.mu.Unlock()
		return ErrMatchClosed
	}
	events, err := fn()
	if err != nil {
		m.mu.Unlock()
		m.logger.Debug("match %s: %s rejected: %v", m.code, op, err)
		return err
	}
	m.enqueue(ctx, m.seal(events))
	m.mu.Unlock()
	m.drain()
	return nil
}

// seal numbers the operation and splits its events per participant.
// Called with mu held.
func (m *Match) seal(events []Event) outbox {
	m.seq++
	out := outbox{start: m.pendingStart, result: m.pendingResult, terminal: m.state.Terminal()}
	m.pendingStart, m.pendingResult = nil, nil
	if out.terminal {
		m.closing.Store(true)
	}
	for _, pl := range m.players {
		var evs []ports.Event
		for _, ev := range events {
			if ev.visibleTo(pl.ID) {
				evs = append(evs, ports.Event{Kind: string(ev.Kind), Payload: ev.Payload})
			}
		}
		if len(evs) == 0 {
			continue
		}
		out.deliveries = append(out.deliveries, delivery{
			playerID: pl.ID,
			update: ports.Update{
				MatchCode: m.code,
				Seq:       m.seq,
				State:     string(m.state),
				Scores:    m.scores,
				Events:    evs,
			},
		})
	}
	return out
}

// enqueue appends a sealed operation to the delivery queue. Called with mu
// held, so queue order is seq order.
func (m *Match) enqueue(ctx context.Context, out outbox) {
	out.ctx = context.WithoutCancel(ctx)
	m.outq = append(m.outq, out)
}

func (m *Match) dequeue() (outbox, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outq) == 0 {
		return outbox{}, false
	}
	out := m.outq[0]
	m.outq[0] = outbox{}
	m.outq = m.outq[1:]
	return out, true
}

func (m *Match) queued() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outq) > 0
}

// drain flushes queued operations unless another goroutine already is. A
// slow collaborator delays delivery of later operations but never their
// execution. The recheck after unlocking picks up work enqueued by a caller
// whose TryLock failed while this one was finishing.
func (m *Match) drain() {
	for {
		if !m.emitMu.TryLock() {
			return
		}
		for {
			out, ok := m.dequeue()
			if !ok {
				break
			}
			m.flush(out)
		}
		m.emitMu.Unlock()
		if !m.queued() {
			return
		}
	}
}

// flush persists and delivers one operation outside the match lock. Called
// with emitMu held.
func (m *Match) flush(out outbox) {
	ctx := out.ctx
	if out.start != nil {
		id, err := m.store.RecordMatchStart(ctx, *out.start)
		if err != nil {
			m.logger.Error("match %s: record start: %v", m.code, err)
		} else {
			m.matchID.Store(&id)
		}
	}
	if out.result != nil {
		res := *out.result
		res.MatchID = m.MatchID()
		if err := m.store.RecordMatchResult(ctx, res); err != nil {
			m.logger.Error("match %s: record result: %v", m.code, err)
		}
	}
	for _, d := range out.deliveries {
		m.notifier.Notify(ctx, d.playerID, d.update)
	}
	if out.terminal && m.onClose != nil {
		m.onClose(m)
	}
}

func (m *Match) player(id string) (*domain.Player, error) {
	pl, ok := m.byID[id]
	if !ok {
		return nil, ErrUnknownPlayer
	}
	return pl, nil
}

func (m *Match) seatAfter(seat int) int { return (seat + 1) % len(m.players) }

// nextOpponent walks seats after from and returns the first opponent that
// satisfies ok. A nil ok accepts any opponent.
func (m *Match) nextOpponent(from *domain.Player, ok func(*domain.Player) bool) *domain.Player {
	for i := 1; i < len(m.players); i++ {
		pl := m.players[(from.Seat+i)%len(m.players)]
		if pl.Team != from.Team && (ok == nil || ok(pl)) {
			return pl
		}
	}
	return nil
}

func (m *Match) pendingLadder() *domain.Ladder {
	for _, l := range []*domain.Ladder{m.truco, m.envido, m.flor} {
		if l.Pending() {
			return l
		}
	}
	return nil
}

func (m *Match) ladder(p domain.Protocol) *domain.Ladder {
	switch p {
	case domain.ProtocolEnvido:
		return m.envido
	case domain.ProtocolFlor:
		return m.flor
	}
	return m.truco
}

// falta is the Falta Envido value: what the leading team still needs.
func (m *Match) falta() int {
	lead := m.scores[0]
	if m.scores[1] > lead {
		lead = m.scores[1]
	}
	return m.rules.WinningScore - lead
}

func (m *Match) manoTeam() domain.Team { return m.players[m.mano].Team }

func (m *Match) Code() string { return m.code }

// MatchID is the persistence id, empty until the start has been recorded.
func (m *Match) MatchID() string {
	if id := m.matchID.Load(); id != nil {
		return *id
	}
	return ""
}

func (m *Match) Rules() Rules { return m.rules }

func (m *Match) State() domain.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Match) Scores() [2]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores
}

// Winner is the winning team once the match is over; TeamNone otherwise.
func (m *Match) Winner() domain.Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.winner
}

// Table returns the cards of the trick in progress.
func (m *Match) Table() []domain.Play {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Play(nil), m.table...)
}

func (m *Match) DeckRemaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deck.Remaining()
}

// Turn returns the player expected to play the next card.
func (m *Match) Turn() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.players[m.turn].ID
}

// HandValue is the accepted Truco stake of the current hand.
func (m *Match) HandValue() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handValue
}

// AwaitingResponse reports whether a call is waiting for an answer.
func (m *Match) AwaitingResponse() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingLadder() != nil
}

// PendingCall describes the call awaiting a response.
type PendingCall struct {
	Protocol  domain.Protocol
	Rung      domain.Rung
	Caller    domain.Party
	Responder domain.Party
}

// Pending returns the outstanding call, if any.
func (m *Match) Pending() (PendingCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.pendingLadder()
	if l == nil {
		return PendingCall{}, false
	}
	return PendingCall{Protocol: l.Protocol(), Rung: l.Current(), Caller: l.Caller(), Responder: l.Responder()}, true
}

// Hand returns a copy of a player's remaining cards.
func (m *Match) Hand(playerID string) ([]domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pl, err := m.player(playerID)
	if err != nil {
		return nil, err
	}
	return append([]domain.Card(nil), pl.Hand...), nil
}

// Players returns the seating in turn order.
func (m *Match) Players() []SeatView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seatViews()
}

func (m *Match) seatViews() []SeatView {
	out := make([]SeatView, len(m.players))
	for i, pl := range m.players {
		out[i] = SeatView{PlayerID: pl.ID, Name: pl.Name, Team: pl.Team, Seat: pl.Seat}
	}
	return out
}

// HasPlayer reports whether id is seated in this match.
func (m *Match) HasPlayer(id string) bool {
	_, ok := m.byID[id]
	return ok
}
