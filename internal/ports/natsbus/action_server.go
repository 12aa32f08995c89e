package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"truco/internal/app"
	"truco/internal/config"
	"truco/internal/ports"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Request ops.
const (
	OpCreate    = "create"
	OpCommand   = "command"
	OpStatus    = "status"
	OpRegister  = "register"
	OpHeartbeat = "heartbeat"
)

type SeatRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Request is one message on the action subject.
type Request struct {
	Op        string        `json:"op"`
	MatchCode string        `json:"match_code,omitempty"`
	PlayerID  string        `json:"player_id,omitempty"`
	Channel   string        `json:"channel,omitempty"`
	Players   []SeatRequest `json:"players,omitempty"`
	Command   *app.Command  `json:"command,omitempty"`
}

type Reply struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Illegal bool           `json:"illegal,omitempty"`
	Code    string         `json:"code,omitempty"`
	View    *app.MatchView `json:"view,omitempty"`
}

// ActionServer answers action requests against the match registry.
type ActionServer struct {
	registry *app.Registry
	notifier ports.Notifier
	store    ports.MatchStore
	sessions ports.SessionRegistry
	logger   app.Logger

	mu    sync.RWMutex
	rules app.Rules

	sub  *nats.Subscription
	pool *workerPool
}

func NewActionServer(registry *app.Registry, notifier ports.Notifier, store ports.MatchStore,
	sessions ports.SessionRegistry, rules app.Rules, logger app.Logger) *ActionServer {
	return &ActionServer{
		registry: registry,
		notifier: notifier,
		store:    store,
		sessions: sessions,
		rules:    rules,
		logger:   logger,
	}
}

// SetRules changes the rules of matches created from now on.
func (s *ActionServer) SetRules(rules app.Rules) {
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
}

// Serve subscribes to conf.ActionSubject in queue group conf.Queue. Messages
// are handed to conf.Workers workers keyed by match, each request bounded by
// conf.RequestTimeout, and answered when they carry a reply subject.
func (s *ActionServer) Serve(ctx context.Context, conn *nats.Conn, conf config.NatsConf) error {
	s.pool = s.startWorkers(ctx, conf.Workers, conf.RequestTimeout)
	sub, err := conn.QueueSubscribe(conf.ActionSubject, conf.Queue, func(msg *nats.Msg) {
		s.pool.submit(msg.Data, func(reply []byte) {
			if msg.Reply == "" {
				return
			}
			if err := msg.Respond(reply); err != nil {
				s.logger.Warn("natsbus: reply to %s: %v", msg.Reply, err)
			}
		})
	})
	if err != nil {
		s.pool.stop()
		return fmt.Errorf("subscribe %s: %w", conf.ActionSubject, err)
	}
	s.sub = sub
	s.logger.Info("natsbus: serving %s (queue %s, %d workers)", conf.ActionSubject, conf.Queue, len(s.pool.queues))
	return nil
}

// Close unsubscribes and waits for queued requests to finish.
func (s *ActionServer) Close() error {
	var err error
	if s.sub != nil {
		err = s.sub.Unsubscribe()
	}
	if s.pool != nil {
		s.pool.stop()
	}
	return err
}

func (s *ActionServer) handle(ctx context.Context, data []byte) []byte {
	var req Request
	var reply Reply
	if err := json.Unmarshal(data, &req); err != nil {
		reply = Reply{Error: "bad request: " + err.Error()}
	} else {
		reply = s.dispatch(ctx, req)
	}
	out, err := json.Marshal(reply)
	if err != nil {
		s.logger.Error("natsbus: encode reply: %v", err)
		return []byte(`{"ok":false,"error":"internal error"}`)
	}
	return out
}

func (s *ActionServer) dispatch(ctx context.Context, req Request) Reply {
	var (
		reply Reply
		err   error
	)
	switch req.Op {
	case OpCreate:
		reply, err = s.create(req)
	case OpCommand:
		reply, err = s.command(ctx, req)
	case OpStatus:
		reply, err = s.status(req)
	case OpRegister:
		if req.PlayerID == "" {
			err = errors.New("player_id required")
			break
		}
		err = s.sessions.Register(ctx, req.PlayerID, req.Channel)
		reply = Reply{OK: err == nil}
	case OpHeartbeat:
		err = s.sessions.Touch(ctx, req.PlayerID)
		reply = Reply{OK: err == nil}
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		if !app.IsIllegal(err) {
			s.logger.Debug("natsbus: %s %s: %v", req.Op, req.MatchCode, err)
		}
		return Reply{Error: err.Error(), Illegal: app.IsIllegal(err), Code: reply.Code}
	}
	return reply
}

func (s *ActionServer) create(req Request) (Reply, error) {
	code := req.MatchCode
	if code == "" {
		code = uuid.NewString()[:8]
	}
	seats := make([]app.PlayerSeat, len(req.Players))
	for i, p := range req.Players {
		seats[i] = app.PlayerSeat{ID: p.ID, Name: p.Name}
	}

	s.mu.RLock()
	rules := s.rules
	s.mu.RUnlock()

	m, err := s.registry.Create(app.NewMatchParams{
		Code:    code,
		Players: seats,
		Rules:   &rules,
	}, app.Deps{
		Notifier: s.notifier,
		Store:    s.store,
		Logger:   s.logger,
	})
	if err != nil {
		return Reply{Code: code}, err
	}
	s.logger.Info("natsbus: match %s created for %d players", m.Code(), len(seats))
	return Reply{OK: true, Code: m.Code()}, nil
}

func (s *ActionServer) command(ctx context.Context, req Request) (Reply, error) {
	if req.Command == nil {
		return Reply{}, errors.New("command required")
	}
	if req.Command.PlayerID == "" {
		req.Command.PlayerID = req.PlayerID
	}
	m, err := s.lookup(req.MatchCode, req.Command.PlayerID)
	if err != nil {
		return Reply{}, err
	}
	if err := m.Execute(ctx, *req.Command); err != nil {
		return Reply{Code: m.Code()}, err
	}
	return Reply{OK: true, Code: m.Code()}, nil
}

func (s *ActionServer) status(req Request) (Reply, error) {
	m, err := s.lookup(req.MatchCode, req.PlayerID)
	if err != nil {
		return Reply{}, err
	}
	viewer := req.PlayerID
	if !m.HasPlayer(viewer) {
		viewer = ""
	}
	view := m.Snapshot(viewer)
	return Reply{OK: true, Code: m.Code(), View: &view}, nil
}

func (s *ActionServer) lookup(code, playerID string) (*app.Match, error) {
	if code != "" {
		if m, ok := s.registry.Get(code); ok {
			return m, nil
		}
		return nil, fmt.Errorf("%w: %s", app.ErrMatchNotFound, code)
	}
	if m, ok := s.registry.GetByPlayer(playerID); ok {
		return m, nil
	}
	return nil, app.ErrMatchNotFound
}
