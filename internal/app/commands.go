package app

import (
	"context"
	"fmt"

	"truco/internal/domain"
)

// CommandKind names an action a transport can ask the match to perform.
type CommandKind string

const (
	CmdStartHand  CommandKind = "start_hand"
	CmdPlayCard   CommandKind = "play_card"
	CmdCallTruco  CommandKind = "call_truco"
	CmdCallEnvido CommandKind = "call_envido"
	CmdCallFlor   CommandKind = "call_flor"
	CmdRespond    CommandKind = "respond"
	CmdGoToDeck   CommandKind = "go_to_deck"
	CmdAbort      CommandKind = "abort"
)

// Command is the transport-neutral form of a player action. Card, Rung,
// Protocol and Response use their wire names.
type Command struct {
	Kind     CommandKind `json:"kind"`
	PlayerID string      `json:"player_id"`
	Card     string      `json:"card,omitempty"`
	Rung     string      `json:"rung,omitempty"`
	Protocol string      `json:"protocol,omitempty"`
	Response string      `json:"response,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

// Execute decodes cmd and runs the matching operation.
func (m *Match) Execute(ctx context.Context, cmd Command) error {
	switch cmd.Kind {
	case CmdStartHand:
		return m.StartNewHand(ctx)
	case CmdPlayCard:
		card, err := domain.ParseCardID(cmd.Card)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadCommand, err)
		}
		return m.PlayCard(ctx, cmd.PlayerID, card)
	case CmdCallTruco, CmdCallEnvido, CmdCallFlor:
		rung, ok := domain.ParseRung(cmd.Rung)
		if !ok {
			return fmt.Errorf("%w: unknown rung %q", ErrBadCommand, cmd.Rung)
		}
		switch cmd.Kind {
		case CmdCallTruco:
			return m.CallTruco(ctx, cmd.PlayerID, rung)
		case CmdCallEnvido:
			return m.CallEnvido(ctx, cmd.PlayerID, rung)
		}
		return m.CallFlor(ctx, cmd.PlayerID, rung)
	case CmdRespond:
		protocol, ok := domain.ParseProtocol(cmd.Protocol)
		if !ok {
			return fmt.Errorf("%w: unknown protocol %q", ErrBadCommand, cmd.Protocol)
		}
		resp, ok := domain.ParseResponse(cmd.Response)
		if !ok {
			return fmt.Errorf("%w: unknown response %q", ErrBadCommand, cmd.Response)
		}
		return m.Respond(ctx, cmd.PlayerID, protocol, resp)
	case CmdGoToDeck:
		return m.GoToDeck(ctx, cmd.PlayerID)
	case CmdAbort:
		reason := cmd.Reason
		if reason == "" {
			reason = "requested"
		}
		return m.AbortMatch(ctx, reason)
	}
	return fmt.Errorf("%w: unknown command %q", ErrBadCommand, cmd.Kind)
}
