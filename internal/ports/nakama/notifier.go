package nakama

import (
	"context"
	"encoding/json"
	"sync"

	"truco/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

type playerUpdate struct {
	playerID string
	update   ports.Update
}

// updateBuffer is the ports.Notifier handed to app.Match. Matches only run
// inside handler callbacks, so updates are queued and sent with the
// dispatcher of the callback that produced them.
type updateBuffer struct {
	mu      sync.Mutex
	pending []playerUpdate
}

func (b *updateBuffer) Notify(_ context.Context, playerID string, update ports.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, playerUpdate{playerID: playerID, update: update})
}

func (b *updateBuffer) drain() []playerUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

// flushUpdates sends queued updates to connected players. Bots and
// disconnected players have no presence and are skipped.
func (mh *matchHandler) flushUpdates(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	for _, pu := range state.Updates.drain() {
		presence, ok := state.Presences[pu.playerID]
		if !ok {
			continue
		}
		data, err := json.Marshal(pu.update)
		if err != nil {
			logger.Error("Failed to marshal update %d for %s: %v", pu.update.Seq, pu.playerID, err)
			continue
		}
		if err := dispatcher.BroadcastMessage(OpUpdate, data, []runtime.Presence{presence}, nil, true); err != nil {
			logger.Warn("Failed to send update %d to %s: %v", pu.update.Seq, pu.playerID, err)
		}
	}
}

var _ ports.Notifier = (*updateBuffer)(nil)
