// Package natsbus carries match traffic over NATS for the standalone server.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"truco/internal/app"
	"truco/internal/ports"

	"github.com/nats-io/nats.go"
)

var ErrNotConnected = errors.New("nats not connected")

const deliveryTimeout = 2 * time.Second

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Notifier publishes each update as JSON to the player's registered
// subject. Players without a live session are skipped. A failed publish
// evicts the session. Session lookups for one delivery share a timeout.
type Notifier struct {
	pub      Publisher
	sessions ports.SessionRegistry
	prefix   string
	timeout  time.Duration
	logger   app.Logger
}

func NewNotifier(pub Publisher, sessions ports.SessionRegistry, prefix string, logger app.Logger) *Notifier {
	return &Notifier{pub: pub, sessions: sessions, prefix: prefix, timeout: deliveryTimeout, logger: logger}
}

// Subject is the default delivery subject of playerID.
func (n *Notifier) Subject(playerID string) string {
	return n.prefix + "." + playerID
}

func (n *Notifier) Notify(ctx context.Context, playerID string, update ports.Update) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if !n.sessions.Alive(ctx, playerID) {
		n.logger.Debug("natsbus: %s has no session, dropping update %d of %s", playerID, update.Seq, update.MatchCode)
		return
	}
	subject, err := n.sessions.Lookup(ctx, playerID)
	if err != nil {
		n.logger.Debug("natsbus: lookup %s: %v", playerID, err)
		return
	}
	if subject == "" {
		subject = n.Subject(playerID)
	}

	data, err := json.Marshal(update)
	if err != nil {
		n.logger.Error("natsbus: encode update for %s: %v", playerID, err)
		return
	}
	if err := n.pub.Publish(subject, data); err != nil {
		n.logger.Warn("natsbus: publish to %s failed, evicting session: %v", subject, err)
		if err := n.sessions.Evict(ctx, playerID); err != nil {
			n.logger.Error("natsbus: evict %s: %v", playerID, err)
		}
	}
}

// Connect dials url and logs connection state changes.
func Connect(url string, logger app.Logger) (*nats.Conn, error) {
	logger.Info("natsbus: connecting to %s", url)
	conn, err := nats.Connect(url,
		nats.Name("trucod"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("natsbus: disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("natsbus: reconnected to %s", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// connPublisher refuses to publish while the connection is down.
type connPublisher struct {
	conn *nats.Conn
}

func (p connPublisher) Publish(subject string, data []byte) error {
	if p.conn == nil || !p.conn.IsConnected() {
		return ErrNotConnected
	}
	return p.conn.Publish(subject, data)
}

// ConnPublisher wraps conn as a Publisher.
func ConnPublisher(conn *nats.Conn) Publisher { return connPublisher{conn: conn} }

var _ ports.Notifier = (*Notifier)(nil)
