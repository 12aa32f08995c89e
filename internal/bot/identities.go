package bot

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// BotIDPrefix marks seat ids that belong to bots. Nakama user ids are UUIDs
// and never carry it.
const BotIDPrefix = "bot-"

type BotIdentity struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"` // "easy", "good"
}

var defaultIdentities = []BotIdentity{
	{UserID: "bot-pampa", Username: "pampa", DisplayName: "El Pampa", Difficulty: "good"},
	{UserID: "bot-tano", Username: "tano", DisplayName: "El Tano", Difficulty: "good"},
	{UserID: "bot-chango", Username: "chango", DisplayName: "Chango", Difficulty: "easy"},
	{UserID: "bot-negra", Username: "negra", DisplayName: "La Negra", Difficulty: "good"},
	{UserID: "bot-flaco", Username: "flaco", DisplayName: "Flaco", Difficulty: "easy"},
	{UserID: "bot-rubia", Username: "rubia", DisplayName: "La Rubia", Difficulty: "good"},
}

var (
	identMu    sync.RWMutex
	identities = defaultIdentities
	byID       = indexIdentities(defaultIdentities)
)

// LoadIdentities replaces the bot roster with the profiles in a JSON file.
// Ids missing the bot prefix get it added.
func LoadIdentities(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read bot identities: %w", err)
	}
	var loaded []BotIdentity
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to unmarshal bot identities: %w", err)
	}
	if len(loaded) == 0 {
		return fmt.Errorf("bot identities file %s is empty", path)
	}
	for i := range loaded {
		id := loaded[i].UserID
		if id == "" {
			id = loaded[i].Username
		}
		if !strings.HasPrefix(id, BotIDPrefix) {
			id = BotIDPrefix + id
		}
		loaded[i].UserID = id
	}

	identMu.Lock()
	defer identMu.Unlock()
	identities = loaded
	byID = indexIdentities(loaded)
	return nil
}

func indexIdentities(list []BotIdentity) map[string]BotIdentity {
	m := make(map[string]BotIdentity, len(list))
	for _, identity := range list {
		m[identity.UserID] = identity
	}
	return m
}

// GetBotIdentity returns an identity for a bot by index (mod pool size).
func GetBotIdentity(index int) BotIdentity {
	identMu.RLock()
	defer identMu.RUnlock()
	return identities[index%len(identities)]
}

// GetBotConfig returns the full identity configuration for a given bot ID.
func GetBotConfig(userID string) (BotIdentity, bool) {
	identMu.RLock()
	defer identMu.RUnlock()
	identity, ok := byID[userID]
	return identity, ok
}

// GetBotDisplayName returns the display name for a bot ID, or an empty string if not a bot.
func GetBotDisplayName(userID string) string {
	identity, ok := GetBotConfig(userID)
	if !ok {
		return ""
	}
	if identity.DisplayName == "" {
		return identity.Username
	}
	return identity.DisplayName
}

// IsBot reports whether the given user ID belongs to a bot seat.
func IsBot(userID string) bool {
	return strings.HasPrefix(userID, BotIDPrefix)
}
