package domain

import (
	"errors"
	"strconv"
)

// Protocol is one of the three independent betting ladders.
type Protocol int

const (
	ProtocolTruco Protocol = iota
	ProtocolEnvido
	ProtocolFlor
)

var protocolNames = [...]string{"truco", "envido", "flor"}

func (p Protocol) String() string {
	if p < ProtocolTruco || p > ProtocolFlor {
		return "protocol(" + strconv.Itoa(int(p)) + ")"
	}
	return protocolNames[p]
}

// ParseProtocol maps a wire name to a protocol.
func ParseProtocol(name string) (Protocol, bool) {
	for i, n := range protocolNames {
		if n == name {
			return Protocol(i), true
		}
	}
	return 0, false
}

// Rung is a single step of a betting ladder.
type Rung int

const (
	RungNone Rung = iota
	Truco
	Retruco
	ValeCuatro
	Envido
	RealEnvido
	FaltaEnvido
	Flor
	ContraFlor
)

var rungNames = map[Rung]string{
	RungNone:    "none",
	Truco:       "truco",
	Retruco:     "retruco",
	ValeCuatro:  "vale_cuatro",
	Envido:      "envido",
	RealEnvido:  "real_envido",
	FaltaEnvido: "falta_envido",
	Flor:        "flor",
	ContraFlor:  "contra_flor",
}

func (r Rung) String() string {
	if n, ok := rungNames[r]; ok {
		return n
	}
	return "rung(" + strconv.Itoa(int(r)) + ")"
}

// ParseRung maps a wire name to a rung.
func ParseRung(name string) (Rung, bool) {
	for r, n := range rungNames {
		if n == name && r != RungNone {
			return r, true
		}
	}
	return RungNone, false
}

// Protocol returns the ladder the rung belongs to.
func (r Rung) Protocol() Protocol {
	switch r {
	case Envido, RealEnvido, FaltaEnvido:
		return ProtocolEnvido
	case Flor, ContraFlor:
		return ProtocolFlor
	}
	return ProtocolTruco
}

// Response is the answer to a pending call.
type Response int

const (
	Accept Response = iota
	Decline
	Raise
)

var responseNames = [...]string{"accept", "decline", "raise"}

func (r Response) String() string {
	if r < Accept || r > Raise {
		return "response(" + strconv.Itoa(int(r)) + ")"
	}
	return responseNames[r]
}

// ParseResponse maps a wire name to a response.
func ParseResponse(name string) (Response, bool) {
	for i, n := range responseNames {
		if n == name {
			return Response(i), true
		}
	}
	return 0, false
}

var (
	ErrLadderClosed    = errors.New("ladder is closed for this hand")
	ErrRungOutOfOrder  = errors.New("rung is not the next step of the ladder")
	ErrLadderTop       = errors.New("ladder has no higher rung")
	ErrLadderPending   = errors.New("ladder already has a pending call")
	ErrNothingPending  = errors.New("ladder has no pending call")
	ErrWrongResponder  = errors.New("player is not the designated responder")
	ErrNotHoldingRaise = errors.New("only the team that accepted may raise")
)

// Ladder tracks one protocol's bets within a hand. Calls must climb one rung
// at a time and at most one call is pending.
type Ladder struct {
	protocol   Protocol
	rungs      []Rung
	values     []int
	declineMin int

	level     int // rungs reached, pending or accepted
	accepted  int // rungs accepted
	pending   bool
	closed    bool
	caller    Party
	responder Party
	holder    Team // team allowed to raise an accepted bet
}

// NewTrucoLadder: Truco 2, Retruco 3, Vale Cuatro 4; a declined Truco is worth 1.
func NewTrucoLadder() *Ladder {
	return &Ladder{
		protocol:   ProtocolTruco,
		rungs:      []Rung{Truco, Retruco, ValeCuatro},
		values:     []int{2, 3, 4},
		declineMin: 1,
	}
}

// NewEnvidoLadder: Envido 2, Real Envido 3, Falta Envido whatever the leader
// still needs to win.
func NewEnvidoLadder() *Ladder {
	return &Ladder{
		protocol:   ProtocolEnvido,
		rungs:      []Rung{Envido, RealEnvido, FaltaEnvido},
		values:     []int{2, 3, 0},
		declineMin: 1,
	}
}

// NewFlorLadder: Flor 3, Contra Flor 6.
func NewFlorLadder() *Ladder {
	return &Ladder{
		protocol:   ProtocolFlor,
		rungs:      []Rung{Flor, ContraFlor},
		values:     []int{3, 6},
		declineMin: 3,
	}
}

func (l *Ladder) Protocol() Protocol { return l.protocol }
func (l *Ladder) Pending() bool      { return l.pending }
func (l *Ladder) Closed() bool       { return l.closed }
func (l *Ladder) Caller() Party      { return l.caller }
func (l *Ladder) Responder() Party   { return l.responder }
func (l *Ladder) Started() bool      { return l.level > 0 }

// Current is the highest rung reached, pending or not.
func (l *Ladder) Current() Rung { return l.rungAt(l.level) }

// Accepted is the highest accepted rung.
func (l *Ladder) Accepted() Rung { return l.rungAt(l.accepted) }

// Next is the rung a call or raise must name, or RungNone at the top.
func (l *Ladder) Next() Rung {
	if l.level >= len(l.rungs) {
		return RungNone
	}
	return l.rungs[l.level]
}

func (l *Ladder) rungAt(level int) Rung {
	if level <= 0 || level > len(l.rungs) {
		return RungNone
	}
	return l.rungs[level-1]
}

// Value returns the points a rung is worth when accepted. falta is the
// Falta Envido value for the current scores and is ignored by other rungs.
func (l *Ladder) Value(r Rung, falta int) int {
	if r == FaltaEnvido {
		if falta < 1 {
			return 1
		}
		return falta
	}
	for i, rr := range l.rungs {
		if rr == r {
			return l.values[i]
		}
	}
	if l.protocol == ProtocolTruco && r == RungNone {
		return 1
	}
	return 0
}

// DeclineValue is what the caller's team earns when the pending rung is
// declined: the previous rung's value, or the protocol minimum.
func (l *Ladder) DeclineValue(falta int) int {
	if l.level <= 1 {
		return l.declineMin
	}
	v := l.Value(l.rungAt(l.level-1), falta)
	if v < l.declineMin {
		return l.declineMin
	}
	return v
}

// CanCall reports whether team may open the next rung now.
func (l *Ladder) CanCall(team Team) bool {
	if l.closed || l.pending || l.Next() == RungNone {
		return false
	}
	return l.level == 0 || l.holder == team
}

// Call opens a new bet on the ladder.
func (l *Ladder) Call(caller, responder Party, r Rung) error {
	if l.closed {
		return ErrLadderClosed
	}
	if l.pending {
		return ErrLadderPending
	}
	if l.level > 0 && caller.Team != l.holder {
		return ErrNotHoldingRaise
	}
	if err := l.checkNext(r); err != nil {
		return err
	}
	l.level++
	l.pending = true
	l.caller = caller
	l.responder = responder
	return nil
}

// Accept settles the pending call and returns the accepted rung.
func (l *Ladder) Accept(player string) (Rung, error) {
	if err := l.checkResponder(player); err != nil {
		return RungNone, err
	}
	l.pending = false
	l.accepted = l.level
	l.holder = l.responder.Team
	return l.Current(), nil
}

// Decline refuses the pending call and closes the ladder. It returns the
// points owed to the caller's team.
func (l *Ladder) Decline(player string, falta int) (int, error) {
	if err := l.checkResponder(player); err != nil {
		return 0, err
	}
	pts := l.DeclineValue(falta)
	l.pending = false
	l.closed = true
	return pts, nil
}

// Raise answers the pending call with the next rung; the responder becomes
// the caller and next must answer.
func (l *Ladder) Raise(player string, r Rung, next Party) error {
	if err := l.checkResponder(player); err != nil {
		return err
	}
	if err := l.checkNext(r); err != nil {
		return err
	}
	l.level++
	l.caller = l.responder
	l.responder = next
	return nil
}

// Close ends the ladder for the rest of the hand.
func (l *Ladder) Close() {
	l.pending = false
	l.closed = true
}

// Reset prepares the ladder for a new hand.
func (l *Ladder) Reset() {
	l.level, l.accepted = 0, 0
	l.pending, l.closed = false, false
	l.caller, l.responder = Party{}, Party{}
	l.holder = TeamNone
}

func (l *Ladder) checkNext(r Rung) error {
	next := l.Next()
	if next == RungNone {
		return ErrLadderTop
	}
	if r != next {
		return ErrRungOutOfOrder
	}
	return nil
}

func (l *Ladder) checkResponder(player string) error {
	if !l.pending {
		return ErrNothingPending
	}
	if player != l.responder.PlayerID {
		return ErrWrongResponder
	}
	return nil
}
