package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	c := Default()
	if c.Game.WinningScore != 30 || !c.Game.FlorEnabled || c.Game.AbortPolicy != "no_winner" {
		t.Fatalf("unexpected game defaults: %+v", c.Game)
	}
	if c.Nats.ActionSubject != "truco.action" || c.Nats.RequestTimeout != 5*time.Second {
		t.Fatalf("nats = %+v", c.Nats)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truco.yaml")
	data := []byte("game:\n  winning_score: 15\n  flor_enabled: false\n  players: 4\nredis:\n  addr: localhost:6379\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TRUCO_GAME_ABORT_POLICY", "leader")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Game.WinningScore != 15 || c.Game.FlorEnabled || c.Game.Players != 4 {
		t.Fatalf("file values not applied: %+v", c.Game)
	}
	if c.Game.AbortPolicy != "leader" {
		t.Fatalf("env override not applied: %q", c.Game.AbortPolicy)
	}
	if c.Redis.Addr != "localhost:6379" || c.Redis.SessionTTL != 60 {
		t.Fatalf("redis = %+v", c.Redis)
	}
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("TRUCO_MONGO_URL", "mongodb://db:27017")
	t.Setenv("TRUCO_MONGO_USERNAME", "truco")
	t.Setenv("TRUCO_MONGO_PASSWORD", "s3cret")
	t.Setenv("TRUCO_REDIS_ADDR", "cache:6379")
	t.Setenv("TRUCO_REDIS_PASSWORD", "hunter2")
	t.Setenv("TRUCO_GAME_WINNING_SCORE", "15")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if c.Game.WinningScore != 15 {
		t.Fatalf("winning_score = %d", c.Game.WinningScore)
	}
	if c.Mongo.URL != "mongodb://db:27017" || c.Mongo.Username != "truco" || c.Mongo.Password != "s3cret" {
		t.Fatalf("mongo = %+v", c.Mongo)
	}
	if c.Redis.Addr != "cache:6379" || c.Redis.Password != "hunter2" {
		t.Fatalf("redis = %+v", c.Redis)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"players", "game:\n  players: 3\n"},
		{"score", "game:\n  winning_score: -1\n"},
		{"policy", "game:\n  abort_policy: coin_flip\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o600); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("Load() should reject %s", tt.name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
