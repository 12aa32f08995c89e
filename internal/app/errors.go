package app

import (
	"errors"
	"fmt"
)

// ErrIllegalAction is wrapped by every rejection an operation can return.
// A rejected operation leaves the match untouched and notifies nobody.
var ErrIllegalAction = errors.New("illegal action")

// ErrInvalidMatch is returned by NewMatch when the parameters cannot form a match.
var ErrInvalidMatch = errors.New("invalid match")

var (
	ErrMatchClosed      = illegal("match is closed")
	ErrWrongState       = illegal("operation not allowed in the current state")
	ErrUnknownPlayer    = illegal("player not found")
	ErrNotYourTurn      = illegal("not your turn")
	ErrCardNotInHand    = illegal("card not in hand")
	ErrCallPending      = illegal("a call is awaiting a response")
	ErrIllegalCall      = illegal("call not allowed")
	ErrNoPendingCall    = illegal("no pending call")
	ErrNotResponder     = illegal("player does not owe the response")
	ErrNoFlor           = illegal("player does not hold flor")
	ErrNoHandInProgress = illegal("no hand in progress")
	ErrBadCommand       = illegal("malformed command")
)

func illegal(msg string) error {
	return fmt.Errorf("%w: %s", ErrIllegalAction, msg)
}

func illegalCall(err error) error {
	return fmt.Errorf("%w: %w", ErrIllegalCall, err)
}
