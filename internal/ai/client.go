// Package ai implements the Gemini-backed reply generation service. It
// assembles persona-aware system instructions, threads conversation memory
// into the request, and normalizes the model output into a short WhatsApp
// reply.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/edgard/zapbot/internal/config"
	"github.com/edgard/zapbot/internal/database"
	"github.com/edgard/zapbot/internal/memory"
)

// Typed generation errors, mapped from the Gemini API status codes so
// callers can distinguish configuration problems from transient failures.
var (
	ErrUnauthorized = errors.New("ai: invalid or unauthorized API key")
	ErrRateLimited  = errors.New("ai: rate limited")
	ErrUnavailable  = errors.New("ai: service unavailable")
	ErrEmptyReply   = errors.New("ai: model returned an empty reply")
)

// Client defines the AI operations used by the bot.
type Client interface {
	// GenerateReply produces a reply to prompt, conditioned on the persona
	// profile (nil for the default persona) and recent conversation turns.
	GenerateReply(ctx context.Context, profile *database.Profile, history []memory.Turn, prompt string) (string, error)

	// AnalyzeStyle extracts a writing-style instruction block from raw chat
	// samples, for storage as a profile's custom style.
	AnalyzeStyle(ctx context.Context, samples []string) (string, error)
}

type sdkClient struct {
	genaiClient *genai.Client
	log         *slog.Logger
	cfg         config.AIConfig
	botName     string
}

// NewClient creates a Gemini client from the AI configuration.
func NewClient(ctx context.Context, cfg config.AIConfig, botName string, log *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrUnauthorized)
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "ai_client")
	logger.Info("Gemini client initialized", "model", cfg.Model, "style_model", cfg.StyleModel)
	return &sdkClient{
		genaiClient: gi,
		log:         logger,
		cfg:         cfg,
		botName:     botName,
	}, nil
}

func (c *sdkClient) GenerateReply(ctx context.Context, profile *database.Profile, history []memory.Turn, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == memory.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	temperature := c.cfg.Temperature
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: c.cfg.MaxOutputTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: BuildSystemInstruction(profile, c.botName)}},
		},
	}

	c.log.DebugContext(ctx, "Generating reply", "history_turns", len(history), "prompt_len", len(prompt))
	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.cfg.Model, contents, genCfg)
	if err != nil {
		return "", c.wrapAPIError(ctx, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		c.log.WarnContext(ctx, "Gemini returned an empty reply")
		return "", ErrEmptyReply
	}

	return Truncate(text, c.cfg.ReplyMaxChars), nil
}

func (c *sdkClient) AnalyzeStyle(ctx context.Context, samples []string) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("ai: no messages to analyze")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var b strings.Builder
	b.WriteString("Chat samples, one per line:\n\n")
	for _, s := range samples {
		b.WriteString(s)
		b.WriteByte('\n')
	}

	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: StyleAnalysisSystemInstruction}},
		},
	}

	contents := []*genai.Content{genai.NewContentFromText(b.String(), genai.RoleUser)}

	c.log.DebugContext(ctx, "Analyzing writing style", "samples", len(samples))
	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.cfg.StyleModel, contents, genCfg)
	if err != nil {
		return "", c.wrapAPIError(ctx, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// wrapAPIError maps Gemini API status codes onto the typed sentinel errors.
func (c *sdkClient) wrapAPIError(ctx context.Context, err error) error {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			c.log.ErrorContext(ctx, "Gemini rejected the API key", "code", apiErr.Code, "error", err)
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case apiErr.Code == 429:
			c.log.WarnContext(ctx, "Gemini rate limit hit", "error", err)
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.Code >= 500:
			c.log.WarnContext(ctx, "Gemini temporarily unavailable", "code", apiErr.Code, "error", err)
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	c.log.ErrorContext(ctx, "Gemini API call failed", "error", err)
	return fmt.Errorf("gemini API call failed: %w", err)
}

// Truncate shortens a reply to at most maxChars runes. It prefers cutting
// at the last space inside the limit so words stay intact, but only when
// enough of the reply survives to still read as a sentence.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	cut := runes[:maxChars]
	lastSpace := -1
	for i, r := range cut {
		if r == ' ' {
			lastSpace = i
		}
	}
	if lastSpace > 20 {
		cut = cut[:lastSpace]
	}
	return strings.TrimSpace(string(cut))
}
