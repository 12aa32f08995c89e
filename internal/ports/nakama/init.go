package nakama

import (
	"context"
	"database/sql"

	"truco/internal/app"
	"truco/internal/bot"
	"truco/internal/config"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Module is what the match handlers and RPCs of one runtime share.
type Module struct {
	cfg      *config.Config
	registry *app.Registry
	voice    *app.VoiceService
}

func NewModule(cfg *config.Config, logger app.Logger) *Module {
	return &Module{
		cfg:      cfg,
		registry: app.NewRegistry(logger),
		voice:    app.NewVoiceService(cfg.Voice.Secret, cfg.Voice.Issuer, cfg.Voice.Domain),
	}
}

// InitModule wires RPCs and match handlers for Nakama runtime. The runtime
// env may name a config file (truco_config), a bot roster
// (truco_bot_identities) and the Vivox credentials.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	if err := config.LoadGameConfig(env["truco_config"]); err != nil {
		return err
	}
	cfg := *config.GetGameConfig()
	if secret, issuer, domain := env["vivox_secret"], env["vivox_issuer"], env["vivox_domain"]; secret != "" {
		cfg.Voice = config.VoiceConf{Secret: secret, Issuer: issuer, Domain: domain}
	}
	if path := env["truco_bot_identities"]; path != "" {
		if err := bot.LoadIdentities(path); err != nil {
			logger.Warn("InitModule: Could not load bot identities: %v", err)
		}
	}

	mod := NewModule(&cfg, logger)
	if err := mod.RegisterRPCs(initializer); err != nil {
		return err
	}

	store := NewStorageMatchStore(nk)
	if err := initializer.RegisterMatch(MatchNameTruco, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(mod, store), nil
	}); err != nil {
		return err
	}

	logger.Info("Truco Go module loaded (%d-player tables, first to %d).", cfg.Game.Players, cfg.Game.WinningScore)
	return nil
}
