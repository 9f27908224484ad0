// Package cli implements the zapbot command line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/edgard/zapbot/internal/config"
	"github.com/edgard/zapbot/internal/database"
	"github.com/edgard/zapbot/internal/logger"
)

var cfgFile string

// Execute runs the CLI with the given base context.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "zapbot",
		Short:         "WhatsApp AI chat bot",
		Long:          "ZapBot is a WhatsApp bot that replies to chat messages with short, persona-driven AI responses.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to the configuration file")

	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newProfilesCmd(),
		newMessagesCmd(),
		newClearMessagesCmd(),
		newBlacklistCmd(),
		newBroadcastCmd(),
	)
	return root
}

// env bundles the dependencies most subcommands need.
type env struct {
	cfg   *config.Config
	log   *slog.Logger
	db    *sqlx.DB
	store database.Store
}

// withEnv loads configuration, opens the database, and runs fn, closing
// everything afterwards.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.CloseDB(db)

	return fn(cmd.Context(), &env{
		cfg:   cfg,
		log:   log,
		db:    db,
		store: database.NewStore(db, log),
	})
}
