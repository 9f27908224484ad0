package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/zapbot/internal/ai"
	"github.com/edgard/zapbot/internal/bot"
	"github.com/edgard/zapbot/internal/events"
	"github.com/edgard/zapbot/internal/scheduler"
	"github.com/edgard/zapbot/internal/web"
	"github.com/edgard/zapbot/internal/whatsapp"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Run the bot",
		Long:  "Connects to WhatsApp, serves the dashboard, and replies to messages until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, runStart)
		},
	}
}

func runStart(ctx context.Context, e *env) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("database is not usable: %w", err)
	}

	var aiClient ai.Client
	if e.cfg.AIEnabled() {
		var err error
		aiClient, err = ai.NewClient(ctx, e.cfg.AI, e.cfg.Bot.Name, e.log)
		if err != nil {
			return err
		}
	} else {
		e.log.Warn("No AI API key configured, running in commands-only mode")
	}

	sched, err := scheduler.New(e.log)
	if err != nil {
		return err
	}

	broker := events.NewBroker()

	// The transport needs its handlers at construction time, but they call
	// into the bot, which in turn needs the transport. The closures resolve
	// the bot pointer lazily; no events fire before Run.
	var b *bot.Bot
	waClient, err := whatsapp.NewClient(ctx, e.cfg.WhatsApp, e.cfg.Database.SessionPath, whatsapp.Handlers{
		OnMessage: func(m whatsapp.Message) { b.HandleInbound(m) },
		OnQR:      func(code string) { b.HandleQR(code) },
		OnState:   func(s whatsapp.State) { b.HandleState(s) },
	}, e.log)
	if err != nil {
		return err
	}

	var webSrv bot.Runner
	if e.cfg.Web.Enabled {
		webSrv = web.NewServer(e.cfg.Web, broker, func(ctx context.Context) any {
			return b.Status(ctx)
		}, e.log)
	}

	b = bot.NewBot(e.log, e.cfg, e.store, aiClient, waClient, sched, webSrv, broker)

	e.log.Info("Starting ZapBot", "name", e.cfg.Bot.Name, "ai_enabled", e.cfg.AIEnabled())
	return b.Run(ctx)
}
