package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"truco/internal/app"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes returned to clients.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeFailedPrecondition = 9
	codeInternal           = 13
)

// MatchFinder is the slice of runtime.NakamaModule quick match needs.
type MatchFinder interface {
	MatchList(ctx context.Context, limit int, authoritative bool, label string, minSize, maxSize *int, query string) ([]*api.Match, error)
	MatchCreate(ctx context.Context, module string, params map[string]interface{}) (string, error)
}

// QuickMatchResponse is the payload returned to clients when requesting a lobby-capable match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

type VoiceTokenResponse struct {
	Token   string `json:"token"`
	Channel string `json:"channel,omitempty"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func (mod *Module) RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, mod.rpcQuickMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcMatchStatus, mod.rpcMatchStatus); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcVoiceToken, mod.rpcVoiceToken)
}

func (mod *Module) rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return mod.quickMatch(ctx, logger, nk, payload)
}

// quickMatch joins the first lobby of the requested size with a free seat,
// creating one when none is open. Payload: {"players": 2|4|6}, optional.
func (mod *Module) quickMatch(ctx context.Context, logger runtime.Logger, nk MatchFinder, payload string) (string, error) {
	var req struct {
		Players int `json:"players"`
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", codeInvalidArgument)
		}
	}
	players := tableSize(req.Players, mod.cfg.Game.Players)

	query := fmt.Sprintf("+label.%s:%s +label.%s:%s +label.%s:>=1 +label.%s:%d",
		MatchLabelKey_Game, labelGame,
		MatchLabelKey_State, labelLobby,
		MatchLabelKey_OpenSeats,
		MatchLabelKey_Players, players)
	minSize := 1
	maxSize := players - 1

	matches, err := nk.MatchList(ctx, 10, true, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{}
	if len(matches) > 0 {
		resp.MatchID = matches[0].GetMatchId()
	} else {
		// Seat/owner assignment happens in MatchJoin.
		matchID, err := nk.MatchCreate(ctx, MatchNameTruco, map[string]interface{}{"players": players})
		if err != nil {
			logger.Error("MatchCreate error: %v", err)
			return "", err
		}
		resp = QuickMatchResponse{MatchID: matchID, IsNew: true}
	}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

// rpcMatchStatus returns the caller's snapshot of a live game. Payload:
// {"match_code": "..."}; without a code, the caller's own game. Callers
// not seated in the game get a spectator view.
func (mod *Module) rpcMatchStatus(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	return mod.matchStatus(userID, payload)
}

func (mod *Module) matchStatus(userID, payload string) (string, error) {
	var req struct {
		MatchCode string `json:"match_code"`
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("Invalid payload", codeInvalidArgument)
		}
	}

	var (
		m  *app.Match
		ok bool
	)
	if req.MatchCode != "" {
		m, ok = mod.registry.Get(req.MatchCode)
	} else {
		m, ok = mod.registry.GetByPlayer(userID)
	}
	if !ok {
		return "", runtime.NewError("Match not found", codeNotFound)
	}

	viewer := userID
	if !m.HasPlayer(userID) {
		viewer = ""
	}
	b, err := json.Marshal(m.Snapshot(viewer))
	if err != nil {
		return "", runtime.NewError("Internal error", codeInternal)
	}
	return string(b), nil
}

// rpcVoiceToken signs a Vivox token for the caller. Payload:
// {"action": "login" | "join"}; join targets the caller's team channel in
// their current game.
func (mod *Module) rpcVoiceToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	resp, err := mod.voiceToken(userID, payload)
	if err != nil {
		logger.Warn("rpcVoiceToken [User:%s]: %v", userID, err)
		return "", err
	}
	return resp, nil
}

func (mod *Module) voiceToken(userID, payload string) (string, error) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("Invalid payload", codeInvalidArgument)
	}
	if userID == "" {
		return "", runtime.NewError("User required", codeInvalidArgument)
	}

	var (
		resp VoiceTokenResponse
		err  error
	)
	switch req.Action {
	case app.VoiceActionLogin:
		resp.Token, err = mod.voice.LoginToken(userID)
	case app.VoiceActionJoin:
		m, ok := mod.registry.GetByPlayer(userID)
		if !ok {
			return "", runtime.NewError("Not seated in a game", codeFailedPrecondition)
		}
		resp.Token, resp.Channel, err = mod.voice.TeamToken(m, userID)
	default:
		return "", runtime.NewError("Unknown action", codeInvalidArgument)
	}
	if errors.Is(err, app.ErrVoiceDisabled) {
		return "", runtime.NewError("Voice is not configured", codeFailedPrecondition)
	}
	if err != nil {
		return "", runtime.NewError("Internal error", codeInternal)
	}

	b, _ := json.Marshal(resp)
	return string(b), nil
}
