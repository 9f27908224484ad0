package ai_test

import (
	"strings"
	"testing"

	"github.com/edgard/zapbot/internal/ai"
	"github.com/edgard/zapbot/internal/database"
)

func TestToneDirective(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		tone         string
		wantContains string
	}{
		{name: "friendly", tone: "friendly", wantContains: "friendly"},
		{name: "casual", tone: "casual", wantContains: "casual"},
		{name: "professional", tone: "professional", wantContains: "professional"},
		{name: "playful", tone: "playful", wantContains: "playful"},
		{name: "serious", tone: "serious", wantContains: "serious"},
		{name: "empty falls back to neutral", tone: "", wantContains: "neutral"},
		{name: "unknown falls back to neutral", tone: "sarcastic", wantContains: "neutral"},
		{name: "case and whitespace are ignored", tone: "  Friendly ", wantContains: "friendly"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ai.ToneDirective(tc.tone)
			if !strings.Contains(got, tc.wantContains) {
				t.Errorf("ToneDirective(%q) = %q, want it to contain %q", tc.tone, got, tc.wantContains)
			}
		})
	}
}

func TestBuildSystemInstruction(t *testing.T) {
	t.Parallel()

	t.Run("nil profile uses the default persona", func(t *testing.T) {
		t.Parallel()

		got := ai.BuildSystemInstruction(nil, "ZapBot")
		if !strings.Contains(got, "ZapBot") {
			t.Error("default persona does not mention the bot name")
		}
		if !strings.Contains(got, "neutral") {
			t.Error("default persona is missing the neutral tone directive")
		}
		if !strings.Contains(got, "STRICT FORMAT RULES") {
			t.Error("strict format rules are missing")
		}
	})

	t.Run("profile instruction replaces the base", func(t *testing.T) {
		t.Parallel()

		profile := &database.Profile{
			SystemInstruction: "You are Lupe, a taco stand owner.",
			Tone:              database.TonePlayful,
		}
		got := ai.BuildSystemInstruction(profile, "ZapBot")
		if !strings.Contains(got, "taco stand owner") {
			t.Error("profile system instruction was not used")
		}
		if strings.Contains(got, "You are ZapBot") {
			t.Error("default base leaked in alongside the profile instruction")
		}
		if !strings.Contains(got, "playful") {
			t.Error("tone directive missing")
		}
	})

	t.Run("custom style is embedded when present", func(t *testing.T) {
		t.Parallel()

		profile := &database.Profile{CustomStyle: "short lowercase messages, lots of xd"}
		got := ai.BuildSystemInstruction(profile, "ZapBot")
		if !strings.Contains(got, "WRITING STYLE") || !strings.Contains(got, "lots of xd") {
			t.Error("custom style block missing")
		}
	})

	t.Run("strict rules always come last", func(t *testing.T) {
		t.Parallel()

		profile := &database.Profile{
			SystemInstruction: "base",
			CustomStyle:       "style",
		}
		got := ai.BuildSystemInstruction(profile, "ZapBot")
		if !strings.HasSuffix(got, ai.StrictFormatRules) {
			t.Error("instruction does not end with the strict format rules")
		}
	})
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		text     string
		maxChars int
		want     string
	}{
		{
			name:     "short text unchanged",
			text:     "nel",
			maxChars: 80,
			want:     "nel",
		},
		{
			name:     "exact limit unchanged",
			text:     strings.Repeat("a", 80),
			maxChars: 80,
			want:     strings.Repeat("a", 80),
		},
		{
			name:     "cuts at last space inside the limit",
			text:     strings.Repeat("palabra ", 12), // 96 chars
			maxChars: 80,
			want:     strings.TrimSpace(strings.Repeat("palabra ", 10)),
		},
		{
			name:     "hard cut when the only space is too early",
			text:     "ok " + strings.Repeat("x", 100),
			maxChars: 80,
			want:     "ok " + strings.Repeat("x", 77),
		},
		{
			name:     "hard cut with no spaces at all",
			text:     strings.Repeat("x", 100),
			maxChars: 80,
			want:     strings.Repeat("x", 80),
		},
		{
			name:     "zero limit disables truncation",
			text:     strings.Repeat("x", 100),
			maxChars: 0,
			want:     strings.Repeat("x", 100),
		},
		{
			name:     "multibyte runes are counted as characters",
			text:     strings.Repeat("ñ", 100),
			maxChars: 80,
			want:     strings.Repeat("ñ", 80),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := ai.Truncate(tc.text, tc.maxChars); got != tc.want {
				t.Errorf("Truncate() = %q, want %q", got, tc.want)
			}
		})
	}
}
