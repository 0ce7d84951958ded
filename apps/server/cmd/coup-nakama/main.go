// Command coup-nakama is built with -buildmode=plugin and loaded by a Nakama
// server. It registers the authoritative coup match handler.
package main

import (
	"context"
	"database/sql"
	"time"

	"coup-lite/apps/server/internal/config"
	"coup-lite/apps/server/internal/ledger"
	"coup-lite/apps/server/internal/nakama"
	"coup-lite/apps/server/internal/table"
	"coup-lite/coup"
	"coup-lite/coup/npc"

	"github.com/heroiclabs/nakama-common/runtime"
)

func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	cfg, err := config.ParseEnv()
	if err != nil {
		return err
	}
	history, mode, err := ledger.NewService(cfg)
	if err != nil {
		return err
	}
	registry := npc.NewRegistry()
	if cfg.BotProfiles != "" {
		if err := registry.LoadFromFile(cfg.BotProfiles); err != nil {
			return err
		}
	}
	logger.WithField("ledger", mode).Info("coup module loading")

	deps := nakama.Deps{
		Ledger: history,
		NPC:    npc.NewManager(registry, time.Now().UnixNano()),
		Table: table.TableConfig{
			Game:            coup.DefaultConfig(),
			ActionTimeout:   cfg.ActionTimeout,
			ReactionTimeout: cfg.ReactionTimeout,
			BotThinkMin:     cfg.BotThinkMin,
			BotThinkMax:     cfg.BotThinkMax,
		},
	}
	return nakama.InitModule(deps)(ctx, logger, db, nk, initializer)
}

func main() {}
