package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GameConfig holds the rules and pacing of new matches.
type GameConfig struct {
	WinningScore  int    `mapstructure:"winning_score"`
	FlorEnabled   bool   `mapstructure:"flor_enabled"`
	AbortPolicy   string `mapstructure:"abort_policy"`
	Players       int    `mapstructure:"players"`
	TickRate      int    `mapstructure:"tick_rate"`
	AutoDealTicks int    `mapstructure:"auto_deal_ticks"`
	// BotsEnabled lets the Nakama handler fill empty seats with bots when the owner starts.
	BotsEnabled   bool `mapstructure:"bots_enabled"`
	BotDelayTicks int  `mapstructure:"bot_delay_ticks"`
}

type LogConf struct {
	Level  string `mapstructure:"level"`
	Prefix string `mapstructure:"prefix"`
}

type MongoConf struct {
	URL         string `mapstructure:"url"`
	DB          string `mapstructure:"db"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	MinPoolSize int    `mapstructure:"min_pool_size"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
}

type RedisConf struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	SessionTTL   int    `mapstructure:"session_ttl_seconds"`
}

type NatsConf struct {
	URL           string `mapstructure:"url"`
	ActionSubject string `mapstructure:"action_subject"`
	UpdatePrefix  string `mapstructure:"update_prefix"`
	Queue         string `mapstructure:"queue"`
	// Workers is the number of request workers; 0 picks twice the CPU count.
	Workers        int           `mapstructure:"workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type VoiceConf struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
	Domain string `mapstructure:"domain"`
}

// Config is the full process configuration.
type Config struct {
	Game  GameConfig `mapstructure:"game"`
	Log   LogConf    `mapstructure:"log"`
	Mongo MongoConf  `mapstructure:"mongo"`
	Redis RedisConf  `mapstructure:"redis"`
	Nats  NatsConf   `mapstructure:"nats"`
	Voice VoiceConf  `mapstructure:"voice"`
}

var (
	cfg      *Config
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the process configuration once from path. An empty
// path uses defaults and environment only.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		cfg, loadErr = Load(path)
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration, or defaults if
// LoadGameConfig was never called.
func GetGameConfig() *Config {
	if cfg == nil {
		c := Default()
		return &c
	}
	return cfg
}

// Default returns the built-in configuration.
func Default() Config {
	v := newViper()
	var c Config
	_ = v.Unmarshal(&c)
	return c
}

// Load reads path (yaml, json or toml) with TRUCO_* environment overrides,
// e.g. TRUCO_GAME_WINNING_SCORE.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return decode(v)
}

// Watch reloads path on change and hands every valid result to onChange.
func Watch(path string, onChange func(*Config, error)) error {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(decode(v))
	})
	v.WatchConfig()
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TRUCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("game.winning_score", 30)
	v.SetDefault("game.flor_enabled", true)
	v.SetDefault("game.abort_policy", "no_winner")
	v.SetDefault("game.players", 2)
	v.SetDefault("game.tick_rate", 5)
	v.SetDefault("game.auto_deal_ticks", 15)
	v.SetDefault("game.bots_enabled", false)
	v.SetDefault("game.bot_delay_ticks", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.prefix", "truco")
	v.SetDefault("mongo.url", "")
	v.SetDefault("mongo.db", "truco")
	v.SetDefault("mongo.username", "")
	v.SetDefault("mongo.password", "")
	v.SetDefault("mongo.min_pool_size", 1)
	v.SetDefault("mongo.max_pool_size", 10)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.session_ttl_seconds", 60)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.action_subject", "truco.action")
	v.SetDefault("nats.update_prefix", "truco.player")
	v.SetDefault("nats.queue", "trucod")
	v.SetDefault("nats.workers", 0)
	v.SetDefault("nats.request_timeout", "5s")
	v.SetDefault("voice.issuer", "")
	v.SetDefault("voice.secret", "")
	v.SetDefault("voice.domain", "")
	return v
}

// Validate rejects configurations no match could be played under.
func (c *Config) Validate() error {
	if c.Game.WinningScore <= 0 {
		return fmt.Errorf("game.winning_score must be positive, got %d", c.Game.WinningScore)
	}
	switch c.Game.Players {
	case 2, 4, 6:
	default:
		return fmt.Errorf("game.players must be 2, 4 or 6, got %d", c.Game.Players)
	}
	switch c.Game.AbortPolicy {
	case "no_winner", "leader":
	default:
		return fmt.Errorf("game.abort_policy %q is not one of no_winner, leader", c.Game.AbortPolicy)
	}
	if c.Game.TickRate <= 0 {
		return fmt.Errorf("game.tick_rate must be positive, got %d", c.Game.TickRate)
	}
	return nil
}
