package ports

import "context"

// Event is one entry of an Update as it leaves the core.
type Event struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// Update carries the ordered events one operation produced for one participant.
type Update struct {
	MatchCode string  `json:"match_code"`
	Seq       uint64  `json:"seq"`
	State     string  `json:"state"`
	Scores    [2]int  `json:"scores"`
	Events    []Event `json:"events"`
}

// Notifier delivers updates to players. Delivery is one-way: failures are the
// notifier's concern and never reach the match.
type Notifier interface {
	Notify(ctx context.Context, playerID string, update Update)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, playerID string, update Update)

func (f NotifierFunc) Notify(ctx context.Context, playerID string, update Update) {
	f(ctx, playerID, update)
}
