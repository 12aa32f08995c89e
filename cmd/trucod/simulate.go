package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"truco/internal/app"
	"truco/internal/bot"
	"truco/internal/config"
	"truco/internal/domain"
	"truco/internal/logging"
	"truco/internal/store"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	simPlayers int
	simSeed    int64
	simGames   int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "play bot-only matches and print the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return simulate(cmd.Context(), cmd)
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simPlayers, "players", 2, "players per match: 2, 4 or 6")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "shuffle seed; 0 seeds from the clock")
	simulateCmd.Flags().IntVar(&simGames, "games", 1, "number of matches to play")
}

func simulate(ctx context.Context, cmd *cobra.Command) error {
	if err := config.LoadGameConfig(configFile); err != nil {
		return err
	}
	cfg := config.GetGameConfig()
	logger := logging.New(cfg.Log.Prefix, cfg.Log.Level, cmd.ErrOrStderr())

	seed := simSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	shuffler := domain.NewRandShuffler(rand.New(rand.NewSource(seed)))
	records := store.NewMemoryStore()
	rules := app.RulesFromConfig(cfg.Game)

	wins := [2]int{}
	for g := 0; g < simGames; g++ {
		m, err := app.NewMatch(app.NewMatchParams{
			Code:    "sim-" + uuid.NewString()[:8],
			Players: bot.Seats(simPlayers),
			Rules:   &rules,
		}, app.Deps{Store: records, Logger: logger, Shuffler: shuffler})
		if err != nil {
			return err
		}

		agents := make([]*bot.Agent, 0, simPlayers)
		for _, seat := range m.Players() {
			agent, err := bot.NewAgent(seat.PlayerID)
			if err != nil {
				return err
			}
			agents = append(agents, agent)
		}
		if err := bot.Run(ctx, m, agents, 20000); err != nil {
			return err
		}

		scores := m.Scores()
		if w := m.Winner(); w != domain.TeamNone {
			wins[w.Index()]++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: team %d wins %d-%d after %d hands\n",
			m.Code(), m.Winner(), scores[0], scores[1], m.Snapshot("").Hand)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seed %d, %d matches, %d records: team 1 won %d, team 2 won %d\n",
		seed, simGames, len(records.Records()), wins[0], wins[1])
	return nil
}
