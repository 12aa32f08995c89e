package domain

import (
	"errors"
	"testing"
)

var (
	alice = Party{PlayerID: "alice", Team: Team1}
	bob   = Party{PlayerID: "bob", Team: Team2}
)

func TestTrucoLadderRaiseChain(t *testing.T) {
	l := NewTrucoLadder()
	if err := l.Call(alice, bob, Retruco); !errors.Is(err, ErrRungOutOfOrder) {
		t.Fatalf("skipping a rung: err = %v", err)
	}
	if err := l.Call(alice, bob, Truco); err != nil {
		t.Fatalf("Call(Truco): %v", err)
	}
	if err := l.Call(alice, bob, Retruco); !errors.Is(err, ErrLadderPending) {
		t.Fatalf("second call while pending: err = %v", err)
	}
	if _, err := l.Accept("alice"); !errors.Is(err, ErrWrongResponder) {
		t.Fatalf("caller accepting own call: err = %v", err)
	}
	if err := l.Raise("bob", Retruco, alice); err != nil {
		t.Fatalf("Raise(Retruco): %v", err)
	}
	if l.Caller() != bob || l.Responder() != alice {
		t.Fatalf("raise did not swap roles: caller %v responder %v", l.Caller(), l.Responder())
	}
	if err := l.Raise("alice", ValeCuatro, bob); err != nil {
		t.Fatalf("Raise(ValeCuatro): %v", err)
	}
	if err := l.Raise("bob", ValeCuatro, alice); !errors.Is(err, ErrLadderTop) {
		t.Fatalf("raise past the top: err = %v", err)
	}
	r, err := l.Accept("bob")
	if err != nil || r != ValeCuatro {
		t.Fatalf("Accept() = %v, %v", r, err)
	}
	if got := l.Value(l.Accepted(), 0); got != 4 {
		t.Fatalf("Vale Cuatro value = %d, want 4", got)
	}
}

func TestLadderOnlyAcceptingTeamRaises(t *testing.T) {
	l := NewTrucoLadder()
	if err := l.Call(alice, bob, Truco); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if _, err := l.Accept("bob"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := l.Call(alice, bob, Retruco); !errors.Is(err, ErrNotHoldingRaise) {
		t.Fatalf("caller team re-raising: err = %v", err)
	}
	if err := l.Call(bob, alice, Retruco); err != nil {
		t.Fatalf("accepting team raising: %v", err)
	}
}

func TestLadderDeclineValues(t *testing.T) {
	tests := []struct {
		name   string
		ladder func() *Ladder
		climb  []Rung
		falta  int
		want   int
	}{
		{"truco", NewTrucoLadder, []Rung{Truco}, 0, 1},
		{"retruco", NewTrucoLadder, []Rung{Truco, Retruco}, 0, 2},
		{"vale cuatro", NewTrucoLadder, []Rung{Truco, Retruco, ValeCuatro}, 0, 3},
		{"envido", NewEnvidoLadder, []Rung{Envido}, 10, 1},
		{"real envido", NewEnvidoLadder, []Rung{Envido, RealEnvido}, 10, 2},
		{"falta envido", NewEnvidoLadder, []Rung{Envido, RealEnvido, FaltaEnvido}, 10, 3},
		{"flor", NewFlorLadder, []Rung{Flor}, 0, 3},
		{"contra flor", NewFlorLadder, []Rung{Flor, ContraFlor}, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.ladder()
			if err := l.Call(alice, bob, tt.climb[0]); err != nil {
				t.Fatalf("Call: %v", err)
			}
			responder := bob
			for _, r := range tt.climb[1:] {
				next := alice
				if responder == alice {
					next = bob
				}
				if err := l.Raise(responder.PlayerID, r, next); err != nil {
					t.Fatalf("Raise(%v): %v", r, err)
				}
				responder = next
			}
			got, err := l.Decline(responder.PlayerID, tt.falta)
			if err != nil {
				t.Fatalf("Decline: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Decline() = %d, want %d", got, tt.want)
			}
			if !l.Closed() || l.Pending() {
				t.Fatalf("declined ladder should be closed and idle")
			}
		})
	}
}

func TestFaltaEnvidoValue(t *testing.T) {
	l := NewEnvidoLadder()
	if got := l.Value(FaltaEnvido, 12); got != 12 {
		t.Fatalf("Value(FaltaEnvido, 12) = %d", got)
	}
	if got := l.Value(FaltaEnvido, 0); got != 1 {
		t.Fatalf("Value(FaltaEnvido, 0) = %d, want 1", got)
	}
}

func TestLadderReset(t *testing.T) {
	l := NewEnvidoLadder()
	_ = l.Call(alice, bob, Envido)
	l.Close()
	if err := l.Call(alice, bob, Envido); !errors.Is(err, ErrLadderClosed) {
		t.Fatalf("call on closed ladder: err = %v", err)
	}
	l.Reset()
	if l.Started() || l.Closed() || l.Current() != RungNone {
		t.Fatalf("Reset() left state behind")
	}
	if err := l.Call(bob, alice, Envido); err != nil {
		t.Fatalf("call after reset: %v", err)
	}
}

func TestParseNames(t *testing.T) {
	for r, name := range rungNames {
		if r == RungNone {
			continue
		}
		if got, ok := ParseRung(name); !ok || got != r {
			t.Fatalf("ParseRung(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := ParseRung("none"); ok {
		t.Fatalf("ParseRung(none) should fail")
	}
	if p, ok := ParseProtocol("flor"); !ok || p != ProtocolFlor {
		t.Fatalf("ParseProtocol(flor) = %v, %v", p, ok)
	}
	if r, ok := ParseResponse("raise"); !ok || r != Raise {
		t.Fatalf("ParseResponse(raise) = %v, %v", r, ok)
	}
}
