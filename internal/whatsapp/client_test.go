package whatsapp_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgard/zapbot/internal/config"
	"github.com/edgard/zapbot/internal/whatsapp"
)

func newTestClient(t *testing.T) *whatsapp.Client {
	t.Helper()

	cfg := config.WhatsAppConfig{
		ReconnectDelay: 5 * time.Second,
		SendTimeout:    10 * time.Second,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := whatsapp.NewClient(context.Background(), cfg, filepath.Join(t.TempDir(), "session.db"), whatsapp.Handlers{}, log)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestSendWhileNotConnected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if got := client.State(); got != whatsapp.StateLoading {
		t.Errorf("initial state = %q, want %q", got, whatsapp.StateLoading)
	}

	err := client.Send(ctx, "5215550001111@s.whatsapp.net", "hola")
	if !errors.Is(err, whatsapp.ErrNotConnected) {
		t.Fatalf("Send while disconnected: got %v, want ErrNotConnected", err)
	}
}

func TestSendRejectsBlankText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		if err := client.Send(ctx, "5215550001111@s.whatsapp.net", text); !errors.Is(err, whatsapp.ErrEmptyMessage) {
			t.Errorf("Send(%q): got %v, want ErrEmptyMessage", text, err)
		}
	}
}

func TestParseJID(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "full jid",
			input: "5215550001111@s.whatsapp.net",
			want:  "5215550001111@s.whatsapp.net",
		},
		{
			name:  "bare phone number",
			input: "5215550001111",
			want:  "5215550001111@s.whatsapp.net",
		},
		{
			name:  "phone number with plus prefix",
			input: "+5215550001111",
			want:  "5215550001111@s.whatsapp.net",
		},
		{
			name:  "surrounding whitespace is ignored",
			input: "  5215550001111  ",
			want:  "5215550001111@s.whatsapp.net",
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "non-numeric without server",
			input:   "not-a-number",
			wantErr: true,
		},
		{
			name:    "formatted phone number is rejected",
			input:   "+52 1 555 000 1111",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			jid, err := whatsapp.ParseJID(tc.input)
			if tc.wantErr {
				if !errors.Is(err, whatsapp.ErrInvalidJID) {
					t.Fatalf("expected ErrInvalidJID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseJID(%q) returned error: %v", tc.input, err)
			}
			if jid.String() != tc.want {
				t.Errorf("ParseJID(%q) = %q, want %q", tc.input, jid, tc.want)
			}
		})
	}
}
