package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"truco/internal/ports"

	"github.com/redis/go-redis/v9"
)

func TestMemory_ExpiresWithoutTouch(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return clock }

	if err := m.Register(ctx, "p1", "inbox.p1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if got, err := m.Lookup(ctx, "p1"); err != nil || got != "inbox.p1" {
		t.Fatalf("lookup = %q, %v", got, err)
	}

	clock = clock.Add(50 * time.Second)
	if err := m.Touch(ctx, "p1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	clock = clock.Add(50 * time.Second)
	if !m.Alive(ctx, "p1") {
		t.Fatal("touched session expired early")
	}

	clock = clock.Add(time.Minute)
	if m.Alive(ctx, "p1") {
		t.Fatal("session outlived its ttl")
	}
	if _, err := m.Lookup(ctx, "p1"); !errors.Is(err, ports.ErrSessionNotFound) {
		t.Fatalf("lookup after expiry: %v", err)
	}
	if err := m.Touch(ctx, "p1"); !errors.Is(err, ports.ErrSessionNotFound) {
		t.Fatalf("touch after expiry: %v", err)
	}
}

func TestMemory_Evict(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)
	_ = m.Register(ctx, "p1", "inbox.p1")
	_ = m.Register(ctx, "p2", "inbox.p2")

	if err := m.Evict(ctx, "p1"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if m.Alive(ctx, "p1") {
		t.Fatal("evicted session still reachable")
	}
	if !m.Alive(ctx, "p2") {
		t.Fatal("evict removed the wrong session")
	}
	if err := m.Evict(ctx, "nobody"); err != nil {
		t.Fatalf("evicting an unknown player: %v", err)
	}
}

// fakeCmdable serves the handful of commands Redis uses from a map.
type fakeCmdable struct {
	redis.Cmdable
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCmdable) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	if _, ok := f.values[key]; !ok {
		return redis.NewBoolResult(false, nil)
	}
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedis_Lifecycle(t *testing.T) {
	ctx := context.Background()
	cli := newFakeCmdable()
	r := NewRedis(cli, 30*time.Second)

	if err := r.Register(ctx, "p1", "inbox.p1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if cli.values["truco:session:p1"] != "inbox.p1" || cli.ttls["truco:session:p1"] != 30*time.Second {
		t.Fatalf("stored %v / %v", cli.values, cli.ttls)
	}
	if got, err := r.Lookup(ctx, "p1"); err != nil || got != "inbox.p1" {
		t.Fatalf("lookup = %q, %v", got, err)
	}
	if err := r.Touch(ctx, "p1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if !r.Alive(ctx, "p1") {
		t.Fatal("Alive missed a live session")
	}

	if err := r.Evict(ctx, "p1"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if r.Alive(ctx, "p1") {
		t.Fatal("Alive found an evicted session")
	}
	if _, err := r.Lookup(ctx, "p1"); !errors.Is(err, ports.ErrSessionNotFound) {
		t.Fatalf("lookup after evict: %v", err)
	}
	if err := r.Touch(ctx, "p1"); !errors.Is(err, ports.ErrSessionNotFound) {
		t.Fatalf("touch after evict: %v", err)
	}
}
