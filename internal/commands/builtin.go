package commands

import (
	"context"
	"fmt"
	"log/slog"
)

// Deps provides dependencies for the built-in command handlers.
type Deps struct {
	Logger  *slog.Logger
	BotName string
	WebAddr string
}

// AICommand is the command name the orchestrator special-cases: its
// arguments are routed directly into the completion pipeline, bypassing
// aggregation.
const AICommand = "ai"

// RegisterBuiltins adds the built-in commands to the registry.
func RegisterBuiltins(r *Registry, deps Deps) {
	r.Register(Handler{
		Name:        "ping",
		Description: "Check that the bot is alive",
		Execute: func(_ context.Context, _ Message, _ []string) (string, error) {
			return "pong! 🏓", nil
		},
	})

	r.Register(Handler{
		Name:        "help",
		Description: "Show the available commands",
		Execute: func(_ context.Context, _ Message, _ []string) (string, error) {
			return r.HelpText(deps.BotName), nil
		},
	})

	r.Register(Handler{
		Name:        "info",
		Description: "Show bot information",
		Execute: func(_ context.Context, _ Message, _ []string) (string, error) {
			info := fmt.Sprintf("🤖 *%s*\n\nWhatsApp AI bot written in Go.", deps.BotName)
			if deps.WebAddr != "" {
				info += fmt.Sprintf("\n🚀 Dashboard: http://%s", deps.WebAddr)
			}
			return info, nil
		},
	})

	// The real work for "ai" happens in the orchestrator; this handler only
	// covers the no-arguments case and keeps the command listed in help.
	r.Register(Handler{
		Name:        AICommand,
		Description: "Chat with the AI",
		Execute: func(_ context.Context, _ Message, args []string) (string, error) {
			if len(args) == 0 {
				return fmt.Sprintf("Please provide a message. Example: %s%s how are you?", r.prefix, AICommand), nil
			}
			return "", nil
		},
	})
}
