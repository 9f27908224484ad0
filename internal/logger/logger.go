// Package logger provides structured logging for ZapBot. It uses Go's slog
// package with configurable level and format, and bridges slog to the
// whatsmeow client's log interface.
package logger

import (
	"fmt"
	"log/slog"
	"os"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// New creates a new slog Logger with the specified level and format and
// installs it as the default. If jsonOutput is true, logs are formatted as
// JSON, otherwise as text.
func New(levelStr string, jsonOutput bool) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Wa wraps an slog.Logger in whatsmeow's waLog.Logger interface so the
// WhatsApp client logs through the same handler as the rest of the bot.
func Wa(log *slog.Logger, module string) waLog.Logger {
	return &waAdapter{
		base:   log,
		log:    log.With("component", "whatsmeow", "module", module),
		module: module,
	}
}

type waAdapter struct {
	base   *slog.Logger
	log    *slog.Logger
	module string
}

func (w *waAdapter) Errorf(msg string, args ...any) { w.log.Error(fmt.Sprintf(msg, args...)) }
func (w *waAdapter) Warnf(msg string, args ...any)  { w.log.Warn(fmt.Sprintf(msg, args...)) }
func (w *waAdapter) Infof(msg string, args ...any)  { w.log.Info(fmt.Sprintf(msg, args...)) }
func (w *waAdapter) Debugf(msg string, args ...any) { w.log.Debug(fmt.Sprintf(msg, args...)) }

func (w *waAdapter) Sub(module string) waLog.Logger {
	return Wa(w.base, w.module+"/"+module)
}
