package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"truco/internal/app"
	"truco/internal/config"
	"truco/internal/logging"
	"truco/internal/ports"
	"truco/internal/ports/natsbus"
	"truco/internal/session"
	"truco/internal/store"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve matches on the configured NATS subjects",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	if err := config.LoadGameConfig(configFile); err != nil {
		return err
	}
	cfg := config.GetGameConfig()
	logger := logging.New(cfg.Log.Prefix, cfg.Log.Level, nil)
	logger.Info("config: %+v", cfg.Game)

	var matchStore ports.MatchStore = store.NewMemoryStore()
	if cfg.Mongo.URL != "" {
		mongoStore, err := store.Connect(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer mongoStore.Close(context.Background())
		matchStore = mongoStore
		logger.Info("store: mongo database %s", cfg.Mongo.DB)
	} else {
		logger.Warn("store: no mongo url, match records stay in memory")
	}

	ttl := time.Duration(cfg.Redis.SessionTTL) * time.Second
	var sessions ports.SessionRegistry = session.NewMemory(ttl)
	if cfg.Redis.Addr != "" {
		cli, err := session.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer cli.Close()
		sessions = session.NewRedis(cli, ttl)
		logger.Info("sessions: redis %s", cfg.Redis.Addr)
	}

	conn, err := natsbus.Connect(cfg.Nats.URL, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	registry := app.NewRegistry(logger)
	notifier := natsbus.NewNotifier(natsbus.ConnPublisher(conn), sessions, cfg.Nats.UpdatePrefix, logger)
	server := natsbus.NewActionServer(registry, notifier, matchStore, sessions, app.RulesFromConfig(cfg.Game), logger)
	if err := server.Serve(ctx, conn, cfg.Nats); err != nil {
		return err
	}

	if configFile != "" {
		err := config.Watch(configFile, func(c *config.Config, err error) {
			if err != nil {
				logger.Warn("config reload rejected: %v", err)
				return
			}
			server.SetRules(app.RulesFromConfig(c.Game))
			logger.Info("config reloaded, new matches play to %d", c.Game.WinningScore)
		})
		if err != nil {
			logger.Warn("config watch disabled: %v", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down with %d live matches", registry.Len())
	if err := server.Close(); err != nil {
		logger.Warn("drain: %v", err)
	}
	for _, code := range registry.Codes() {
		if m, ok := registry.Get(code); ok {
			_ = m.AbortMatch(context.Background(), app.AbortShutdown)
		}
	}
	return nil
}
