package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"truco/internal/config"
	"truco/internal/ports"

	"github.com/redis/go-redis/v9"
)

const sessionKey = "truco:session" // playerID -> delivery channel

// Redis is a ports.SessionRegistry shared by every server process. Each
// session is a key that expires ttl after its last heartbeat.
type Redis struct {
	cli redis.Cmdable
	ttl time.Duration
}

func NewRedis(cli redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{cli: cli, ttl: ttl}
}

// Connect opens and pings a client for conf.
func Connect(ctx context.Context, conf config.RedisConf) (*redis.Client, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:         conf.Addr,
		Password:     conf.Password,
		PoolSize:     conf.PoolSize,
		MinIdleConns: conf.MinIdleConns,
	})
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, fmt.Errorf("redis ping %s: %w", conf.Addr, err)
	}
	return cli, nil
}

func key(playerID string) string { return sessionKey + ":" + playerID }

func (r *Redis) Register(ctx context.Context, playerID, channel string) error {
	return r.cli.Set(ctx, key(playerID), channel, r.ttl).Err()
}

func (r *Redis) Touch(ctx context.Context, playerID string) error {
	ok, err := r.cli.Expire(ctx, key(playerID), r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ports.ErrSessionNotFound
	}
	return nil
}

func (r *Redis) Lookup(ctx context.Context, playerID string) (string, error) {
	channel, err := r.cli.Get(ctx, key(playerID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ports.ErrSessionNotFound
	}
	return channel, err
}

// Alive treats a Redis failure as an unreachable player.
func (r *Redis) Alive(ctx context.Context, playerID string) bool {
	count, err := r.cli.Exists(ctx, key(playerID)).Result()
	return err == nil && count > 0
}

func (r *Redis) Evict(ctx context.Context, playerID string) error {
	return r.cli.Del(ctx, key(playerID)).Err()
}

var _ ports.SessionRegistry = (*Redis)(nil)
