// Package config provides configuration loading and validation for ZapBot.
// Values come from config.yaml (optional) and BOT_* environment variables,
// layered over defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration indicates an invalid or unloadable configuration.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration for all ZapBot components.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Bot       BotConfig       `mapstructure:"bot"`
	AI        AIConfig        `mapstructure:"ai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Web       WebConfig       `mapstructure:"web"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LogConfig controls log level and output format.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// BotConfig holds routing and aggregation settings.
type BotConfig struct {
	Name           string        `mapstructure:"name"            validate:"required"`
	CommandPrefix  string        `mapstructure:"command_prefix"  validate:"required"`
	DebounceWindow time.Duration `mapstructure:"debounce_window" validate:"required,min=100ms,max=1m"`
	MaxBurstSize   int           `mapstructure:"max_burst_size"  validate:"required,min=1,max=50"`
	MessageLogCap  int           `mapstructure:"message_log_cap" validate:"required,min=1"`
}

// AIConfig holds Gemini completion service settings. An empty APIKey
// disables AI features; the bot still serves commands.
type AIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"             validate:"required"`
	StyleModel      string        `mapstructure:"style_model"       validate:"required"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens" validate:"required,min=1"`
	Temperature     float32       `mapstructure:"temperature"       validate:"min=0,max=2"`
	Timeout         time.Duration `mapstructure:"timeout"           validate:"required,min=1s,max=10m"`
	ReplyMaxChars   int           `mapstructure:"reply_max_chars"   validate:"required,min=20"`
	HistoryTurns    int           `mapstructure:"history_turns"     validate:"required,min=1,max=100"`
	FallbackReply   string        `mapstructure:"fallback_reply"    validate:"required"`
}

// DatabaseConfig holds SQLite paths for the bot store and the WhatsApp
// session container.
type DatabaseConfig struct {
	Path        string `mapstructure:"path"         validate:"required"`
	SessionPath string `mapstructure:"session_path" validate:"required"`
}

// WhatsAppConfig holds transport settings.
type WhatsAppConfig struct {
	AutoReconnect  bool          `mapstructure:"auto_reconnect"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" validate:"required,min=1s,max=5m"`
	SendTimeout    time.Duration `mapstructure:"send_timeout"    validate:"required,min=1s,max=5m"`
}

// WebConfig holds dashboard server settings.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required"`
}

// SchedulerConfig holds background task settings.
type SchedulerConfig struct {
	ReaperInterval time.Duration `mapstructure:"reaper_interval" validate:"required,min=10s"`
	ReaperMaxAge   time.Duration `mapstructure:"reaper_max_age"  validate:"required,min=1m"`
	TrimInterval   time.Duration `mapstructure:"trim_interval"   validate:"required,min=1m"`
	MaintenanceAt  string        `mapstructure:"maintenance_at"  validate:"required"`
}

// AIEnabled reports whether the completion service is configured.
func (c *Config) AIEnabled() bool {
	return c.AI.APIKey != ""
}

// Load reads configuration from the given YAML file, applies BOT_*
// environment overrides and validates the result. A missing config file is
// not an error; defaults and environment variables are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("bot.name", "ZapBot")
	v.SetDefault("bot.command_prefix", "!")
	v.SetDefault("bot.debounce_window", 3*time.Second)
	v.SetDefault("bot.max_burst_size", 5)
	v.SetDefault("bot.message_log_cap", 100)

	// An explicit empty default keeps the key visible to viper so the
	// BOT_AI_API_KEY environment override is honored during Unmarshal.
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.style_model", "gemini-2.0-flash-lite")
	v.SetDefault("ai.max_output_tokens", 50)
	v.SetDefault("ai.temperature", 1.0)
	v.SetDefault("ai.timeout", 2*time.Minute)
	v.SetDefault("ai.reply_max_chars", 80)
	v.SetDefault("ai.history_turns", 10)
	v.SetDefault("ai.fallback_reply", "nel, algo salió mal xd")

	v.SetDefault("database.path", "zapbot.db")
	v.SetDefault("database.session_path", "whatsapp-session.db")

	v.SetDefault("whatsapp.auto_reconnect", true)
	v.SetDefault("whatsapp.reconnect_delay", 5*time.Second)
	v.SetDefault("whatsapp.send_timeout", 30*time.Second)

	v.SetDefault("web.enabled", true)
	v.SetDefault("web.addr", "localhost:3000")

	v.SetDefault("scheduler.reaper_interval", 5*time.Minute)
	v.SetDefault("scheduler.reaper_max_age", 10*time.Minute)
	v.SetDefault("scheduler.trim_interval", time.Hour)
	v.SetDefault("scheduler.maintenance_at", "03:30")
}
