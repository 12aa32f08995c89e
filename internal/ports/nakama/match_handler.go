package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"truco/internal/app"
	"truco/internal/bot"
	"truco/internal/domain"
	"truco/internal/ports"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
// Seats form the lobby; Match is the game in progress, nil between games.
type MatchState struct {
	Code          string                      `json:"code"`
	Size          int                         `json:"size"`       // 2, 4 or 6 seats
	Seats         []string                    `json:"seats"`      // user ids, empty string means seat is empty
	OwnerSeat     int                         `json:"owner_seat"` // seat index of the match owner
	Tick          int64                       `json:"tick"`
	Games         int                         `json:"games"` // games started in this lobby
	Presences     map[string]runtime.Presence `json:"-"`     // user id -> presence for targeted messaging
	Names         map[string]string           `json:"-"`
	Match         *app.Match                  `json:"-"`
	Updates       *updateBuffer               `json:"-"`
	Store         ports.MatchStore            `json:"-"`
	BotsEnabled   bool                        `json:"bots_enabled"`
	BotDelayTicks int                         `json:"bot_delay_ticks"`
	BotWaitUntil  int64                       `json:"bot_wait_until"` // tick when the next bot acts
	AutoDealTicks int                         `json:"auto_deal_ticks"`
	HandEndedTick int64                       `json:"hand_ended_tick"`
	Bots          map[string]*bot.Agent       `json:"-"`
}

func (ms *MatchState) GetOpenSeatsCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat == "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) GetOccupiedSeatCount() int {
	return len(ms.Seats) - ms.GetOpenSeatsCount()
}

func (ms *MatchState) seatOf(userID string) int {
	for i, seat := range ms.Seats {
		if seat == userID {
			return i
		}
	}
	return -1
}

// isHumanSeat reports whether the seat index belongs to a human player.
func isHumanSeat(seats []string, seatIndex int) bool {
	if seatIndex < 0 || seatIndex >= len(seats) {
		return false
	}
	userID := seats[seatIndex]
	return userID != "" && !bot.IsBot(userID)
}

// findFirstHumanSeat returns the first seat index with a human occupant or -1 if none exist.
func findFirstHumanSeat(seats []string) int {
	for i := range seats {
		if isHumanSeat(seats, i) {
			return i
		}
	}
	return -1
}

// shouldTerminateNoHumans returns true when there are no humans in the match.
func shouldTerminateNoHumans(seats []string) bool {
	return findFirstHumanSeat(seats) == -1
}

type matchHandler struct {
	mod   *Module
	store ports.MatchStore
}

func newMatchHandler(mod *Module, store ports.MatchStore) *matchHandler {
	return &matchHandler{mod: mod, store: store}
}

// MatchInit is called when the match is created. params may carry
// "players" to size the table.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	game := mh.mod.cfg.Game
	size := tableSize(params["players"], game.Players)

	code, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	if code == "" {
		code = uuid.NewString()
	}
	state := newMatchState(code, size, mh.store)
	state.BotsEnabled = game.BotsEnabled
	state.BotDelayTicks = game.BotDelayTicks
	state.AutoDealTicks = game.AutoDealTicks

	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	logger.Debug("MatchInit: %d-seat table %s ready.", size, code)
	return state, game.TickRate, label
}

func newMatchState(code string, size int, store ports.MatchStore) *MatchState {
	return &MatchState{
		Code:      code,
		Size:      size,
		Seats:     make([]string, size),
		OwnerSeat: -1,
		Presences: make(map[string]runtime.Presence),
		Names:     make(map[string]string),
		Updates:   &updateBuffer{},
		Store:     store,
		Bots:      make(map[string]*bot.Agent),
	}
}

// tableSize accepts the JSON number or int a client or RPC passed, falling
// back to def for anything but 2, 4 or 6.
func tableSize(v interface{}, def int) int {
	var n int
	switch x := v.(type) {
	case float64:
		n = int(x)
	case int:
		n = x
	case int64:
		n = int(x)
	}
	switch n {
	case 2, 4, 6:
		return n
	}
	return def
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if matchState.Match != nil {
		return state, false, "Game in progress"
	}
	if matchState.GetOpenSeatsCount() <= 0 && !hasBotSeat(matchState.Seats) {
		return state, false, "Match full"
	}
	return state, true, ""
}

func hasBotSeat(seats []string) bool {
	for _, seat := range seats {
		if bot.IsBot(seat) {
			return true
		}
	}
	return false
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p
		matchState.Names[userID] = p.GetUsername()
		if matchState.seatOf(userID) >= 0 {
			logger.Debug("MatchJoin: User %s is already seated.", userID)
			continue
		}
		if !assignSeat(matchState, userID, logger) {
			logger.Warn("MatchJoin: User %s joined but no seat (empty or bot) was available.", userID)
		}
	}

	// Ensure owner seat is assigned to a human player only.
	if !isHumanSeat(matchState.Seats, matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats)
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastLobby(matchState, dispatcher, logger)
	return matchState
}

// assignSeat takes the first empty seat, then replaces a bot while no game
// is running.
func assignSeat(state *MatchState, userID string, logger runtime.Logger) bool {
	for i, seat := range state.Seats {
		if seat == "" {
			state.Seats[i] = userID
			return true
		}
	}
	if state.Match != nil {
		return false
	}
	for i, seat := range state.Seats {
		if bot.IsBot(seat) {
			logger.Info("MatchJoin: Replacing bot %s with human %s in seat %d", seat, userID, i)
			delete(state.Bots, seat)
			state.Seats[i] = userID
			return true
		}
	}
	return false
}

// MatchLeave is called when one or more players leave the match. A seated
// player leaving aborts the game in progress.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		seat := matchState.seatOf(userID)
		delete(matchState.Presences, userID)
		if seat >= 0 && matchState.Match != nil {
			mh.abortGame(ctx, matchState, dispatcher, logger, app.AbortPlayerLeft)
		}
		if seat >= 0 {
			matchState.Seats[seat] = ""
			logger.Debug("MatchLeave: User %s left, seat %d freed.", userID, seat)
		}
	}

	if !isHumanSeat(matchState.Seats, matchState.OwnerSeat) {
		matchState.OwnerSeat = findFirstHumanSeat(matchState.Seats)
	}
	if shouldTerminateNoHumans(matchState.Seats) {
		logger.Info("MatchLeave: Terminating match with no humans.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	mh.broadcastLobby(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpPlayCard:
			mh.handleCommand(ctx, matchState, dispatcher, logger, msg, app.CmdPlayCard)
		case OpCallTruco:
			mh.handleCommand(ctx, matchState, dispatcher, logger, msg, app.CmdCallTruco)
		case OpCallEnvido:
			mh.handleCommand(ctx, matchState, dispatcher, logger, msg, app.CmdCallEnvido)
		case OpCallFlor:
			mh.handleCommand(ctx, matchState, dispatcher, logger, msg, app.CmdCallFlor)
		case OpRespond:
			mh.handleCommand(ctx, matchState, dispatcher, logger, msg, app.CmdRespond)
		case OpGoToDeck:
			mh.handleCommand(ctx, matchState, dispatcher, logger, msg, app.CmdGoToDeck)
		case OpStatus:
			mh.sendStatus(matchState, dispatcher, logger, msg.GetUserId())
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	mh.processAutoDeal(ctx, matchState, dispatcher, logger)
	if matchState.BotsEnabled {
		mh.processBots(ctx, matchState, dispatcher, logger)
	}
	return matchState
}

// handleStartGame starts a game from the lobby, or deals the next hand
// when the previous one is over. Only the owner may do either.
func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()
	senderSeat := state.seatOf(senderID)
	logger.Info("StartGame: Request received from %s (seat=%d, owner_seat=%d, occupied=%d)", senderID, senderSeat, state.OwnerSeat, state.GetOccupiedSeatCount())

	if senderSeat < 0 || senderSeat != state.OwnerSeat {
		mh.sendError(state, dispatcher, logger, senderID, 403, "only the match owner can start")
		return
	}
	if state.Match != nil {
		mh.execute(ctx, state, dispatcher, logger, app.Command{Kind: app.CmdStartHand, PlayerID: senderID})
		return
	}
	if err := mh.startGame(ctx, state, dispatcher, logger); err != nil {
		logger.Warn("StartGame: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
	}
}

func (mh *matchHandler) startGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) error {
	if state.BotsEnabled {
		mh.fillBots(state, logger)
	}
	if state.GetOpenSeatsCount() > 0 {
		return fmt.Errorf("need %d players, have %d", state.Size, state.GetOccupiedSeatCount())
	}

	seats := make([]app.PlayerSeat, len(state.Seats))
	for i, userID := range state.Seats {
		seats[i] = app.PlayerSeat{ID: userID, Name: state.displayName(userID)}
	}
	rules := app.RulesFromConfig(mh.mod.cfg.Game)
	state.Games++
	m, err := mh.mod.registry.Create(app.NewMatchParams{
		Code:    fmt.Sprintf("%s-g%d", state.Code, state.Games),
		LobbyID: state.Code,
		Players: seats,
		Rules:   &rules,
	}, app.Deps{Notifier: state.Updates, Store: state.Store, Logger: logger})
	if err != nil {
		return err
	}
	state.Match = m
	state.HandEndedTick, state.BotWaitUntil = 0, 0

	err = m.StartNewHand(ctx)
	mh.flushUpdates(state, dispatcher, logger)
	if err != nil {
		return err
	}
	mh.updateLabel(state, dispatcher, logger)
	logger.Info("StartGame: Game %s started with %d players.", m.Code(), len(seats))
	return nil
}

// fillBots seats a bot in every empty seat.
func (mh *matchHandler) fillBots(state *MatchState, logger runtime.Logger) {
	for i, seat := range state.Seats {
		if seat != "" {
			continue
		}
		identity := bot.GetBotIdentity(i)
		agent, err := bot.NewAgent(identity.UserID)
		if err != nil {
			logger.Error("fillBots: Failed to create bot agent for %s: %v", identity.UserID, err)
			continue
		}
		state.Seats[i] = identity.UserID
		state.Bots[identity.UserID] = agent
		logger.Info("fillBots: Added bot %s (%s) to seat %d", agent.Name, identity.UserID, i)
	}
}

func (ms *MatchState) displayName(userID string) string {
	if name := ms.Names[userID]; name != "" {
		return name
	}
	if name := bot.GetBotDisplayName(userID); name != "" {
		return name
	}
	return userID
}

// handleCommand decodes a client action. The payload is a JSON app.Command;
// its kind comes from the op code and its player from the sender.
func (mh *matchHandler) handleCommand(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData, kind app.CommandKind) {
	senderID := msg.GetUserId()
	if state.Match == nil {
		mh.sendError(state, dispatcher, logger, senderID, 400, "game not started")
		return
	}
	var cmd app.Command
	if data := msg.GetData(); len(data) > 0 {
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warn("handleCommand: Invalid %s payload from %s: %v", kind, senderID, err)
			mh.sendError(state, dispatcher, logger, senderID, 400, "invalid payload")
			return
		}
	}
	cmd.Kind = kind
	cmd.PlayerID = senderID
	mh.execute(ctx, state, dispatcher, logger, cmd)
}

func (mh *matchHandler) execute(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, cmd app.Command) {
	err := state.Match.Execute(ctx, cmd)
	mh.flushUpdates(state, dispatcher, logger)
	if err != nil {
		if app.IsIllegal(err) {
			logger.Debug("execute: %s by %s rejected: %v", cmd.Kind, cmd.PlayerID, err)
			mh.sendError(state, dispatcher, logger, cmd.PlayerID, 400, err.Error())
		} else {
			logger.Error("execute: %s by %s failed: %v", cmd.Kind, cmd.PlayerID, err)
			mh.sendError(state, dispatcher, logger, cmd.PlayerID, 500, "internal error")
		}
	}
	mh.checkGameOver(state, dispatcher, logger)
}

// checkGameOver returns the table to the lobby once the game has ended.
func (mh *matchHandler) checkGameOver(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Match == nil || !state.Match.State().Terminal() {
		return
	}
	logger.Info("Game %s over: %s, scores %v", state.Match.Code(), state.Match.State(), state.Match.Scores())
	state.Match = nil
	state.HandEndedTick, state.BotWaitUntil = 0, 0
	mh.updateLabel(state, dispatcher, logger)
	mh.broadcastLobby(state, dispatcher, logger)
}

func (mh *matchHandler) abortGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, reason string) {
	if state.Match == nil {
		return
	}
	if err := state.Match.AbortMatch(ctx, reason); err != nil {
		logger.Error("abortGame: %v", err)
	}
	mh.flushUpdates(state, dispatcher, logger)
	mh.checkGameOver(state, dispatcher, logger)
}

// processAutoDeal deals the next hand AutoDealTicks after one ends. Zero
// leaves dealing to the owner.
func (mh *matchHandler) processAutoDeal(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Match == nil || state.Match.State() != domain.StateHandEnd {
		state.HandEndedTick = 0
		return
	}
	if state.AutoDealTicks <= 0 {
		return
	}
	if state.HandEndedTick == 0 {
		state.HandEndedTick = state.Tick
		return
	}
	if state.Tick-state.HandEndedTick < int64(state.AutoDealTicks) {
		return
	}
	state.HandEndedTick = 0
	if err := state.Match.StartNewHand(ctx); err != nil {
		logger.Warn("processAutoDeal: %v", err)
	}
	mh.flushUpdates(state, dispatcher, logger)
}

// processBots lets one bot act per tick, BotDelayTicks after it first has
// something to do.
func (mh *matchHandler) processBots(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Match == nil {
		return
	}
	agent := mh.nextBot(state)
	if agent == nil {
		state.BotWaitUntil = 0
		return
	}
	if state.BotWaitUntil == 0 {
		state.BotWaitUntil = state.Tick + int64(state.BotDelayTicks)
		logger.Debug("processBots: Bot %s will act at tick %d (current %d)", agent.ID, state.BotWaitUntil, state.Tick)
	}
	if state.Tick < state.BotWaitUntil {
		return
	}
	state.BotWaitUntil = 0

	acted, err := agent.Act(ctx, state.Match)
	mh.flushUpdates(state, dispatcher, logger)
	if err != nil {
		logger.Error("processBots: Bot %s failed to act: %v", agent.ID, err)
	} else if !acted {
		logger.Debug("processBots: Bot %s had nothing to do", agent.ID)
	}
	mh.checkGameOver(state, dispatcher, logger)
}

func (mh *matchHandler) nextBot(state *MatchState) *bot.Agent {
	for _, userID := range state.Seats {
		agent, ok := state.Bots[userID]
		if !ok {
			continue
		}
		if _, ok := agent.Strategy.Decide(state.Match.Snapshot(userID)); ok {
			return agent
		}
	}
	return nil
}

type lobbySeat struct {
	Seat   int    `json:"seat"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Bot    bool   `json:"bot,omitempty"`
	Owner  bool   `json:"owner,omitempty"`
}

type lobbyView struct {
	Code    string      `json:"code"`
	Size    int         `json:"size"`
	State   string      `json:"state"`
	Game    string      `json:"game,omitempty"`
	Tick    int64       `json:"tick"`
	Players []lobbySeat `json:"players"`
}

func (ms *MatchState) lobbyView() lobbyView {
	view := lobbyView{Code: ms.Code, Size: ms.Size, State: labelLobby, Tick: ms.Tick}
	if ms.Match != nil {
		view.State = labelPlaying
		view.Game = ms.Match.Code()
	}
	for i, userID := range ms.Seats {
		seat := lobbySeat{Seat: i, UserID: userID, Owner: i == ms.OwnerSeat}
		if userID != "" {
			seat.Name = ms.displayName(userID)
			seat.Bot = bot.IsBot(userID)
		}
		view.Players = append(view.Players, seat)
	}
	return view
}

func (mh *matchHandler) broadcastLobby(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	data, err := json.Marshal(state.lobbyView())
	if err != nil {
		logger.Error("broadcastLobby: Failed to marshal: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpLobby, data, nil, nil, true)
}

// sendStatus answers OpStatus with the sender's view of the game, or the
// lobby between games.
func (mh *matchHandler) sendStatus(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	var payload interface{} = state.lobbyView()
	if state.Match != nil {
		payload = state.Match.Snapshot(userID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("sendStatus: Failed to marshal: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpStatusView, data, []runtime.Presence{presence}, nil, true)
}

type errorEvent struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error event to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	data, err := json.Marshal(errorEvent{Code: code, Message: message})
	if err != nil {
		logger.Error("Failed to marshal error event: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{presence}, nil, true)
}

// matchLabel renders the label quick match filters on.
func matchLabel(state *MatchState) (string, error) {
	phase := labelLobby
	if state.Match != nil {
		phase = labelPlaying
	}
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_OpenSeats: state.GetOpenSeatsCount(),
		MatchLabelKey_Game:      labelGame,
		MatchLabelKey_State:     phase,
		MatchLabelKey_Players:   state.Size,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminating in %d seconds", graceSeconds)
	if matchState, ok := state.(*MatchState); ok {
		mh.abortGame(ctx, matchState, dispatcher, logger, app.AbortShutdown)
	}
	return state
}

// MatchSignal accepts "abort" to end the game in progress.
func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	matchState, ok := state.(*MatchState)
	if !ok || data != "abort" {
		return state, ""
	}
	if matchState.Match == nil {
		return state, "no game in progress"
	}
	mh.abortGame(ctx, matchState, dispatcher, logger, app.AbortSignal)
	return state, "aborted"
}
