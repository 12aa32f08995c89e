package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "truco_quick_match"
	// RpcMatchStatus returns the caller's view of the game they are seated in.
	RpcMatchStatus = "truco_match_status"
	// RpcVoiceToken signs a voice login or team channel token.
	RpcVoiceToken = "truco_voice_token"

	// MatchNameTruco is the authoritative match handler name registered with Nakama.
	MatchNameTruco = "truco_match"

	matchCollection = "truco_matches"
)

// Label keys used by quick match queries.
const (
	MatchLabelKey_OpenSeats = "open"
	MatchLabelKey_Game      = "game"
	MatchLabelKey_State     = "state"
	MatchLabelKey_Players   = "players"

	labelGame    = "truco"
	labelLobby   = "lobby"
	labelPlaying = "playing"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame  int64 = 1
	OpPlayCard   int64 = 2
	OpCallTruco  int64 = 3
	OpCallEnvido int64 = 4
	OpCallFlor   int64 = 5
	OpRespond    int64 = 6
	OpGoToDeck   int64 = 7
	OpStatus     int64 = 8

	// Server -> Client events
	OpUpdate     int64 = 100 // ports.Update, sent privately
	OpLobby      int64 = 101
	OpStatusView int64 = 102 // send privately
	OpError      int64 = 199 // send privately
)
