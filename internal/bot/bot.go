// Package bot implements the core message pipeline and component lifecycle:
// inbound routing, debounced aggregation, reply generation, and persistence.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/zapbot/internal/ai"
	"github.com/edgard/zapbot/internal/commands"
	"github.com/edgard/zapbot/internal/config"
	"github.com/edgard/zapbot/internal/database"
	"github.com/edgard/zapbot/internal/events"
	"github.com/edgard/zapbot/internal/memory"
	"github.com/edgard/zapbot/internal/queue"
	"github.com/edgard/zapbot/internal/scheduler"
	"github.com/edgard/zapbot/internal/whatsapp"
)

// memoryTurnCap bounds per-sender conversation memory; only the most
// recent turns are sent as context, the rest is kept for trimming headroom.
const memoryTurnCap = 40

const aiDisabledReply = "AI replies are not available right now. Try the commands instead, see !help."

// Transport is the messaging surface the bot runs on.
type Transport interface {
	Run(ctx context.Context) error
	Send(ctx context.Context, senderKey, text string) error
	SetTyping(ctx context.Context, senderKey string, typing bool)
	State() whatsapp.State
}

// Runner is an optional auxiliary component tied to the bot lifecycle,
// such as the web dashboard server.
type Runner interface {
	Run(ctx context.Context) error
}

// Status is a point-in-time snapshot for the dashboard and CLI.
type Status struct {
	State          string `json:"state"`
	AIEnabled      bool   `json:"ai_enabled"`
	TrackedSenders int    `json:"tracked_senders"`
	MessagesStored int    `json:"messages_stored"`
	Blacklisted    int    `json:"blacklisted"`
}

// Bot wires the transport, aggregation queue, command registry, AI client,
// and persistence together and manages their lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	store     database.Store
	aiClient  ai.Client
	transport Transport
	sched     *scheduler.Scheduler
	web       Runner
	broker    *events.Broker

	mem      *memory.Store
	agg      *queue.Aggregator
	registry *commands.Registry

	mu    sync.Mutex
	names map[string]string
}

// NewBot creates the orchestrator. aiClient may be nil when no API key is
// configured; commands keep working and freeform messages get a notice.
// web may be nil when the dashboard is disabled.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	store database.Store,
	aiClient ai.Client,
	transport Transport,
	sched *scheduler.Scheduler,
	web Runner,
	broker *events.Broker,
) *Bot {
	b := &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		store:     store,
		aiClient:  aiClient,
		transport: transport,
		sched:     sched,
		web:       web,
		broker:    broker,
		mem:       memory.NewStore(memoryTurnCap),
		names:     make(map[string]string),
	}

	b.agg = queue.New(queue.Options{
		DebounceWindow: cfg.Bot.DebounceWindow,
		MaxBurstSize:   cfg.Bot.MaxBurstSize,
	}, b.handleFlush, logger)

	b.registry = commands.NewRegistry(cfg.Bot.CommandPrefix)
	commands.RegisterBuiltins(b.registry, commands.Deps{
		Logger:  logger,
		BotName: cfg.Bot.Name,
		WebAddr: webAddr(cfg),
	})

	b.registerTasks()
	return b
}

func webAddr(cfg *config.Config) string {
	if cfg.Web.Enabled {
		return cfg.Web.Addr
	}
	return ""
}

func (b *Bot) registerTasks() {
	b.sched.Register("queue_reaper", scheduler.Every(b.cfg.Scheduler.ReaperInterval), func(_ context.Context) error {
		b.agg.Reap(b.cfg.Scheduler.ReaperMaxAge)
		return nil
	})

	b.sched.Register("message_log_trim", scheduler.Every(b.cfg.Scheduler.TrimInterval), func(ctx context.Context) error {
		removed, err := b.store.TrimMessageLogs(ctx, b.cfg.Bot.MessageLogCap)
		if err != nil {
			return err
		}
		if removed > 0 {
			b.logger.Info("Trimmed message log", "removed", removed, "keep", b.cfg.Bot.MessageLogCap)
		}
		return nil
	})

	maintenance, err := scheduler.DailyAt(b.cfg.Scheduler.MaintenanceAt)
	if err != nil {
		b.logger.Error("Invalid maintenance schedule, task disabled", "error", err)
		return
	}
	b.sched.Register("sql_maintenance", maintenance, func(ctx context.Context) error {
		return b.store.RunSQLMaintenance(ctx)
	})
}

// Run starts all components and blocks until the context is cancelled or a
// component fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.transport.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("transport stopped: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := b.sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		<-gCtx.Done()
		if err := b.sched.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	if b.web != nil {
		g.Go(func() error {
			if err := b.web.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("web server stopped: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	b.agg.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}
	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

// HandleInbound routes one inbound message: blacklist drop, then command
// dispatch or freeform aggregation. It is safe to call from the transport's
// event goroutine; slow work is handed off.
func (b *Bot) HandleInbound(msg whatsapp.Message) {
	ctx := context.Background()

	blocked, err := b.store.IsBlacklisted(ctx, msg.Sender)
	if err != nil {
		b.logger.Error("Blacklist lookup failed, letting message through", "error", err)
	}
	if blocked {
		b.logger.Debug("Dropped message from blacklisted sender", "sender", msg.Sender)
		return
	}

	b.rememberName(msg.Sender, msg.SenderName)

	inv, isCommand := commands.Parse(msg.Body, b.registry.Prefix())
	if !isCommand {
		b.agg.Enqueue(msg.Sender, msg.Body)
		return
	}

	// The ai command feeds straight into the reply pipeline, skipping
	// aggregation so the reply covers exactly the given text.
	if inv.Name == commands.AICommand && len(inv.Args) > 0 {
		go b.generateReply(ctx, msg.Sender, strings.Join(inv.Args, " "))
		return
	}

	reply, err := b.registry.Dispatch(ctx, inv, commands.Message{
		Sender:     msg.Sender,
		SenderName: msg.SenderName,
		Body:       msg.Body,
		Timestamp:  msg.Timestamp,
	})
	if err != nil {
		b.logger.Error("Command failed", "command", inv.Name, "error", err)
		return
	}
	if reply == "" {
		return
	}
	if err := b.transport.Send(ctx, msg.Sender, reply); err != nil {
		b.logger.Error("Failed to send command reply", "command", inv.Name, "error", err)
	}
}

// HandleQR publishes a pairing code to the dashboard.
func (b *Bot) HandleQR(code string) {
	b.broker.Publish(events.TypeQR, code)
}

// HandleState publishes a connection state change to the dashboard.
func (b *Bot) HandleState(state whatsapp.State) {
	b.broker.Publish(events.TypeStatus, string(state))
}

// handleFlush is the aggregation queue callback: it receives the combined
// prompt for a sender and drives reply generation.
func (b *Bot) handleFlush(senderKey, prompt string) {
	b.generateReply(context.Background(), senderKey, prompt)
}

func (b *Bot) generateReply(ctx context.Context, senderKey, prompt string) {
	if b.aiClient == nil {
		if err := b.transport.Send(ctx, senderKey, aiDisabledReply); err != nil {
			b.logger.Error("Failed to send AI-disabled notice", "error", err)
		}
		return
	}

	b.transport.SetTyping(ctx, senderKey, true)
	defer b.transport.SetTyping(ctx, senderKey, false)

	var persona *database.Profile
	profiles, err := b.store.GetProfiles(ctx)
	if err != nil {
		b.logger.Error("Failed to load profiles, using default persona", "error", err)
	} else {
		persona = database.ResolvePersona(profiles, senderKey)
	}

	history := b.mem.Recent(senderKey, b.cfg.AI.HistoryTurns)

	reply, err := b.aiClient.GenerateReply(ctx, persona, history, prompt)
	if err != nil {
		b.logger.Error("Reply generation failed, sending fallback", "sender", senderKey, "error", err)
		reply = b.cfg.AI.FallbackReply
	} else {
		b.mem.Record(senderKey, prompt, reply)
	}

	if err := b.transport.Send(ctx, senderKey, reply); err != nil {
		b.logger.Error("Failed to send reply", "sender", senderKey, "error", err)
		return
	}

	b.persistExchange(ctx, senderKey, prompt, reply, persona)
}

func (b *Bot) persistExchange(ctx context.Context, senderKey, prompt, reply string, persona *database.Profile) {
	profileUsed := ""
	if persona != nil {
		profileUsed = persona.Name
	}

	entry := &database.MessageLog{
		Sender:      senderKey,
		SenderName:  b.nameOf(senderKey),
		Body:        prompt,
		Reply:       reply,
		ProfileUsed: profileUsed,
		Timestamp:   time.Now(),
	}
	if err := b.store.SaveMessageLog(ctx, entry); err != nil {
		b.logger.Error("Failed to persist message log", "error", err)
	}

	b.broker.Publish(events.TypeMessage, events.MessagePayload{
		Sender:     senderKey,
		SenderName: entry.SenderName,
		Body:       prompt,
		Reply:      reply,
	})
}

// Status reports a snapshot of the bot for the dashboard and CLI.
func (b *Bot) Status(ctx context.Context) Status {
	st := Status{
		State:          string(b.transport.State()),
		AIEnabled:      b.aiClient != nil,
		TrackedSenders: b.agg.Len(),
	}

	if count, err := b.store.CountMessageLogs(ctx); err == nil {
		st.MessagesStored = count
	}
	if entries, err := b.store.GetBlacklist(ctx); err == nil {
		st.Blacklisted = len(entries)
	}
	return st
}

func (b *Bot) rememberName(senderKey, name string) {
	if name == "" {
		return
	}
	b.mu.Lock()
	b.names[senderKey] = name
	b.mu.Unlock()
}

func (b *Bot) nameOf(senderKey string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.names[senderKey]
}
