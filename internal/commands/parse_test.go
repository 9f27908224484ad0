package commands_test

import (
	"reflect"
	"testing"

	"github.com/edgard/zapbot/internal/commands"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		body     string
		prefix   string
		wantCmd  bool
		wantName string
		wantArgs []string
	}{
		{
			name:    "freeform text",
			body:    "hola, como estas?",
			prefix:  "!",
			wantCmd: false,
		},
		{
			name:     "simple command",
			body:     "!ping",
			prefix:   "!",
			wantCmd:  true,
			wantName: "ping",
		},
		{
			name:     "command with arguments",
			body:     "!ai tell me a joke",
			prefix:   "!",
			wantCmd:  true,
			wantName: "ai",
			wantArgs: []string{"tell", "me", "a", "joke"},
		},
		{
			name:     "command name is lower-cased",
			body:     "!PING",
			prefix:   "!",
			wantCmd:  true,
			wantName: "ping",
		},
		{
			name:     "extra whitespace between tokens",
			body:     "!ai   hello    there",
			prefix:   "!",
			wantCmd:  true,
			wantName: "ai",
			wantArgs: []string{"hello", "there"},
		},
		{
			name:     "prefix only",
			body:     "!",
			prefix:   "!",
			wantCmd:  true,
			wantName: "",
		},
		{
			name:     "prefix followed by whitespace only",
			body:     "!   ",
			prefix:   "!",
			wantCmd:  true,
			wantName: "",
		},
		{
			name:    "prefix in the middle is not a command",
			body:    "hey !ping",
			prefix:  "!",
			wantCmd: false,
		},
		{
			name:    "empty body",
			body:    "",
			prefix:  "!",
			wantCmd: false,
		},
		{
			name:    "empty prefix never matches",
			body:    "!ping",
			prefix:  "",
			wantCmd: false,
		},
		{
			name:     "multi-character prefix",
			body:     "zb:help",
			prefix:   "zb:",
			wantCmd:  true,
			wantName: "help",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			inv, isCmd := commands.Parse(tc.body, tc.prefix)
			if isCmd != tc.wantCmd {
				t.Fatalf("Parse(%q, %q) isCommand = %v, want %v", tc.body, tc.prefix, isCmd, tc.wantCmd)
			}
			if !tc.wantCmd {
				if inv != nil {
					t.Fatalf("expected nil invocation for freeform text, got %+v", inv)
				}
				return
			}
			if inv.Name != tc.wantName {
				t.Errorf("name = %q, want %q", inv.Name, tc.wantName)
			}
			if len(tc.wantArgs) > 0 || len(inv.Args) > 0 {
				if !reflect.DeepEqual(inv.Args, tc.wantArgs) {
					t.Errorf("args = %v, want %v", inv.Args, tc.wantArgs)
				}
			}
		})
	}
}
