package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"truco/internal/app"
	"truco/internal/ports"
	"truco/internal/session"
	"truco/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

type published struct {
	subject string
	update  ports.Update
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	var u ports.Update
	if err := json.Unmarshal(data, &u); err != nil {
		return err
	}
	f.mu.Lock()
	f.msgs = append(f.msgs, published{subject: subject, update: u})
	f.mu.Unlock()
	return nil
}

type fixture struct {
	pub      *fakePublisher
	sessions *session.Memory
	store    *store.MemoryStore
	registry *app.Registry
	server   *ActionServer
}

func newFixture() *fixture {
	f := &fixture{
		pub:      &fakePublisher{},
		sessions: session.NewMemory(time.Hour),
		store:    store.NewMemoryStore(),
		registry: app.NewRegistry(noopLogger{}),
	}
	notifier := NewNotifier(f.pub, f.sessions, "truco.player", noopLogger{})
	f.server = NewActionServer(f.registry, notifier, f.store, f.sessions, app.DefaultRules(), noopLogger{})
	return f
}

func (f *fixture) call(t *testing.T, req Request) Reply {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	var reply Reply
	require.NoError(t, json.Unmarshal(f.server.handle(context.Background(), data), &reply))
	return reply
}

func (f *fixture) createAndDeal(t *testing.T) string {
	t.Helper()
	reply := f.call(t, Request{Op: OpCreate, MatchCode: "mesa", Players: []SeatRequest{{ID: "a", Name: "Ana"}, {ID: "b", Name: "Beto"}}})
	require.True(t, reply.OK, reply.Error)
	reply = f.call(t, Request{Op: OpCommand, MatchCode: "mesa", Command: &app.Command{Kind: app.CmdStartHand}})
	require.True(t, reply.OK, reply.Error)
	return reply.Code
}

func TestActionServer_CreateAndDeal(t *testing.T) {
	f := newFixture()
	require.True(t, f.call(t, Request{Op: OpRegister, PlayerID: "a", Channel: "inbox.a"}).OK)

	code := f.createAndDeal(t)
	assert.Equal(t, "mesa", code)
	assert.Equal(t, 1, f.registry.Len())

	require.NotEmpty(t, f.pub.msgs)
	for _, msg := range f.pub.msgs {
		assert.Equal(t, "inbox.a", msg.subject, "b has no session")
		assert.Equal(t, "mesa", msg.update.MatchCode)
	}

	recs := f.store.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "mesa", recs[0].Start.MatchCode)

	dup := f.call(t, Request{Op: OpCreate, MatchCode: "mesa", Players: []SeatRequest{{ID: "c"}, {ID: "d"}}})
	assert.False(t, dup.OK)
	assert.Contains(t, dup.Error, "already registered")
}

func TestActionServer_CreateGeneratesCode(t *testing.T) {
	f := newFixture()
	reply := f.call(t, Request{Op: OpCreate, Players: []SeatRequest{{ID: "a"}, {ID: "b"}}})
	require.True(t, reply.OK, reply.Error)
	assert.Len(t, reply.Code, 8)

	bad := f.call(t, Request{Op: OpCreate, Players: []SeatRequest{{ID: "a"}, {ID: "b"}, {ID: "c"}}})
	assert.False(t, bad.OK)
}

func TestActionServer_IllegalCommand(t *testing.T) {
	f := newFixture()
	f.createAndDeal(t)

	// the mano plays first in the opening hand
	reply := f.call(t, Request{Op: OpCommand, PlayerID: "b", Command: &app.Command{Kind: app.CmdPlayCard, Card: "1-swords"}})
	assert.False(t, reply.OK)
	assert.True(t, reply.Illegal)
	assert.Equal(t, "mesa", reply.Code)

	reply = f.call(t, Request{Op: OpCommand, MatchCode: "nope", Command: &app.Command{Kind: app.CmdGoToDeck, PlayerID: "a"}})
	assert.False(t, reply.OK)
	assert.False(t, reply.Illegal)

	reply = f.call(t, Request{Op: OpCommand, MatchCode: "mesa"})
	assert.Equal(t, "command required", reply.Error)
}

func TestActionServer_Status(t *testing.T) {
	f := newFixture()
	f.createAndDeal(t)

	reply := f.call(t, Request{Op: OpStatus, PlayerID: "a"})
	require.True(t, reply.OK, reply.Error)
	require.NotNil(t, reply.View)
	assert.Equal(t, "a", reply.View.Viewer)
	assert.Len(t, reply.View.Players[0].Hand, 3)
	assert.Empty(t, reply.View.Players[1].Hand)

	reply = f.call(t, Request{Op: OpStatus, MatchCode: "mesa", PlayerID: "watcher"})
	require.True(t, reply.OK, reply.Error)
	assert.Empty(t, reply.View.Viewer)
	assert.Empty(t, reply.View.Players[0].Hand)
}

func TestActionServer_Sessions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.False(t, f.call(t, Request{Op: OpHeartbeat, PlayerID: "a"}).OK)
	assert.False(t, f.call(t, Request{Op: OpRegister}).OK)
	require.True(t, f.call(t, Request{Op: OpRegister, PlayerID: "a", Channel: "inbox.a"}).OK)
	assert.True(t, f.call(t, Request{Op: OpHeartbeat, PlayerID: "a"}).OK)
	assert.True(t, f.sessions.Alive(ctx, "a"))

	assert.Contains(t, f.call(t, Request{Op: "dance"}).Error, "unknown op")

	var reply Reply
	require.NoError(t, json.Unmarshal(f.server.handle(ctx, []byte("{")), &reply))
	assert.Contains(t, reply.Error, "bad request")
}

func TestActionServer_AbortRemovesMatch(t *testing.T) {
	f := newFixture()
	f.createAndDeal(t)

	reply := f.call(t, Request{Op: OpCommand, MatchCode: "mesa", Command: &app.Command{Kind: app.CmdAbort, Reason: "ops"}})
	require.True(t, reply.OK, reply.Error)
	assert.Equal(t, 0, f.registry.Len())

	recs := f.store.Records()
	require.Len(t, recs, 1)
	require.NotNil(t, recs[0].Result)
	assert.True(t, recs[0].Result.Aborted)
	assert.Equal(t, "ops", recs[0].Result.Reason)
}

func TestNotifier_DefaultSubjectAndEviction(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemory(time.Hour)
	pub := &fakePublisher{}
	n := NewNotifier(pub, sessions, "truco.player", noopLogger{})

	n.Notify(ctx, "ghost", ports.Update{MatchCode: "m"})
	assert.Empty(t, pub.msgs)

	require.NoError(t, sessions.Register(ctx, "a", ""))
	n.Notify(ctx, "a", ports.Update{MatchCode: "m", Seq: 4})
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "truco.player.a", pub.msgs[0].subject)
	assert.Equal(t, uint64(4), pub.msgs[0].update.Seq)

	pub.err = errors.New("broken pipe")
	n.Notify(ctx, "a", ports.Update{MatchCode: "m", Seq: 5})
	assert.False(t, sessions.Alive(ctx, "a"))
}

// matchGate hangs every delivery for one match until release is closed.
type matchGate struct {
	code    string
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *matchGate) Notify(_ context.Context, _ string, u ports.Update) {
	if u.MatchCode != g.code {
		return
	}
	g.once.Do(func() { close(g.entered) })
	<-g.release
}

func submitAndWait(t *testing.T, p *workerPool, req Request) <-chan Reply {
	t.Helper()
	data, err := json.Marshal(req)
	require.NoError(t, err)
	out := make(chan Reply, 1)
	require.True(t, p.submit(data, func(b []byte) {
		var reply Reply
		_ = json.Unmarshal(b, &reply)
		out <- reply
	}))
	return out
}

func TestWorkerPool_MatchesRunInParallel(t *testing.T) {
	ctx := context.Background()
	gate := &matchGate{code: "slow", entered: make(chan struct{}), release: make(chan struct{})}
	registry := app.NewRegistry(noopLogger{})
	server := NewActionServer(registry, gate, store.NewMemoryStore(), session.NewMemory(time.Hour), app.DefaultRules(), noopLogger{})
	pool := server.startWorkers(ctx, 4, time.Second)
	defer pool.stop()

	fast := ""
	for i := 0; fast == ""; i++ {
		if code := fmt.Sprintf("fast-%d", i); pool.index(code) != pool.index("slow") {
			fast = code
		}
	}
	for _, code := range []string{"slow", fast} {
		reply := <-submitAndWait(t, pool, Request{Op: OpCreate, MatchCode: code,
			Players: []SeatRequest{{ID: code + "-a"}, {ID: code + "-b"}}})
		require.True(t, reply.OK, reply.Error)
	}

	slowDone := submitAndWait(t, pool, Request{Op: OpCommand, MatchCode: "slow", Command: &app.Command{Kind: app.CmdStartHand}})
	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("slow match never reached its notifier")
	}

	select {
	case reply := <-submitAndWait(t, pool, Request{Op: OpCommand, MatchCode: fast, Command: &app.Command{Kind: app.CmdStartHand}}):
		assert.True(t, reply.OK, reply.Error)
	case <-time.After(time.Second):
		t.Fatal("a hung delivery on one match held up another match")
	}

	close(gate.release)
	select {
	case reply := <-slowDone:
		assert.True(t, reply.OK, reply.Error)
	case <-time.After(2 * time.Second):
		t.Fatal("slow match never answered")
	}
}

// deadlineSessions records whether Register ran under a deadline.
type deadlineSessions struct {
	*session.Memory
	deadline time.Time
	hasDL    bool
}

func (d *deadlineSessions) Register(ctx context.Context, playerID, channel string) error {
	d.deadline, d.hasDL = ctx.Deadline()
	return d.Memory.Register(ctx, playerID, channel)
}

func TestWorkerPool_RequestDeadline(t *testing.T) {
	sessions := &deadlineSessions{Memory: session.NewMemory(time.Hour)}
	server := NewActionServer(app.NewRegistry(noopLogger{}), ports.NotifierFunc(func(context.Context, string, ports.Update) {}),
		store.NewMemoryStore(), sessions, app.DefaultRules(), noopLogger{})
	pool := server.startWorkers(context.Background(), 2, 3*time.Second)

	before := time.Now()
	reply := <-submitAndWait(t, pool, Request{Op: OpRegister, PlayerID: "a", Channel: "inbox.a"})
	require.True(t, reply.OK, reply.Error)
	require.True(t, sessions.hasDL, "request ran without a deadline")
	assert.WithinDuration(t, before.Add(3*time.Second), sessions.deadline, time.Second)

	pool.stop()
	assert.False(t, pool.submit([]byte(`{"op":"status"}`), func([]byte) {}), "stopped pool accepted work")
}

func TestRouteKey(t *testing.T) {
	f := newFixture()
	f.createAndDeal(t)

	encode := func(req Request) []byte {
		data, err := json.Marshal(req)
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, "mesa", f.server.routeKey(encode(Request{Op: OpStatus, MatchCode: "mesa"})))
	assert.Equal(t, "mesa", f.server.routeKey(encode(Request{Op: OpStatus, PlayerID: "b"})))
	assert.Equal(t, "mesa", f.server.routeKey(encode(Request{Op: OpCommand, Command: &app.Command{Kind: app.CmdGoToDeck, PlayerID: "a"}})))
	assert.Equal(t, "nobody", f.server.routeKey(encode(Request{Op: OpHeartbeat, PlayerID: "nobody"})))
	assert.Equal(t, "", f.server.routeKey([]byte("{")))
}
