package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgard/zapbot/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file returned error: %v", err)
	}

	if cfg.Bot.CommandPrefix != "!" {
		t.Errorf("command prefix = %q, want %q", cfg.Bot.CommandPrefix, "!")
	}
	if cfg.Bot.DebounceWindow != 3*time.Second {
		t.Errorf("debounce window = %v, want 3s", cfg.Bot.DebounceWindow)
	}
	if cfg.Bot.MaxBurstSize != 5 {
		t.Errorf("max burst size = %d, want 5", cfg.Bot.MaxBurstSize)
	}
	if cfg.Bot.MessageLogCap != 100 {
		t.Errorf("message log cap = %d, want 100", cfg.Bot.MessageLogCap)
	}
	if cfg.AI.MaxOutputTokens != 50 {
		t.Errorf("max output tokens = %d, want 50", cfg.AI.MaxOutputTokens)
	}
	if cfg.AI.ReplyMaxChars != 80 {
		t.Errorf("reply max chars = %d, want 80", cfg.AI.ReplyMaxChars)
	}
	if cfg.AI.FallbackReply == "" {
		t.Error("fallback reply must not be empty")
	}
	if cfg.AIEnabled() {
		t.Error("AI must be disabled without an API key")
	}
	if cfg.Scheduler.ReaperInterval != 5*time.Minute {
		t.Errorf("reaper interval = %v, want 5m", cfg.Scheduler.ReaperInterval)
	}
	if cfg.Scheduler.ReaperMaxAge != 10*time.Minute {
		t.Errorf("reaper max age = %v, want 10m", cfg.Scheduler.ReaperMaxAge)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
bot:
  name: TestBot
  command_prefix: "#"
  debounce_window: 5s
ai:
  api_key: test-key
  model: gemini-2.0-flash
web:
  enabled: false
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Bot.Name != "TestBot" {
		t.Errorf("bot name = %q, want TestBot", cfg.Bot.Name)
	}
	if cfg.Bot.CommandPrefix != "#" {
		t.Errorf("command prefix = %q, want #", cfg.Bot.CommandPrefix)
	}
	if cfg.Bot.DebounceWindow != 5*time.Second {
		t.Errorf("debounce window = %v, want 5s", cfg.Bot.DebounceWindow)
	}
	if !cfg.AIEnabled() {
		t.Error("AI should be enabled with an API key")
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", cfg.AI.Model)
	}
	if cfg.Web.Enabled {
		t.Error("web should be disabled")
	}
	// Unset values keep their defaults.
	if cfg.Bot.MaxBurstSize != 5 {
		t.Errorf("max burst size = %d, want default 5", cfg.Bot.MaxBurstSize)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BOT_BOT_COMMAND_PREFIX", "$")
	t.Setenv("BOT_AI_API_KEY", "env-key")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Bot.CommandPrefix != "$" {
		t.Errorf("command prefix = %q, want env override $", cfg.Bot.CommandPrefix)
	}
	if !cfg.AIEnabled() {
		t.Error("AI should be enabled via env API key")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{
			name: "invalid log level",
			content: `
log:
  level: loud
`,
		},
		{
			name: "debounce window too small",
			content: `
bot:
  debounce_window: 1ms
`,
		},
		{
			name: "burst size out of range",
			content: `
bot:
  max_burst_size: 500
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0o600); err != nil {
				t.Fatal(err)
			}

			_, err := config.Load(path)
			if !errors.Is(err, config.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("bot: ["), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Load(path); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
