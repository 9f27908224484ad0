package database_test

import (
	"testing"

	"github.com/edgard/zapbot/internal/database"
)

func TestResolvePersona(t *testing.T) {
	t.Parallel()

	phoneMatch := database.Profile{ID: 1, Name: "for-maria", Phone: "+52 1 555 000 1111"}
	active := database.Profile{ID: 2, Name: "default-active", Active: true}
	first := database.Profile{ID: 3, Name: "plain"}

	testCases := []struct {
		name      string
		profiles  []database.Profile
		senderKey string
		wantName  string
		wantNil   bool
	}{
		{
			name:      "no profiles",
			profiles:  nil,
			senderKey: "5215550001111@s.whatsapp.net",
			wantNil:   true,
		},
		{
			name:      "phone match wins over active",
			profiles:  []database.Profile{active, phoneMatch},
			senderKey: "5215550001111@s.whatsapp.net",
			wantName:  "for-maria",
		},
		{
			name:      "phone match ignores formatting",
			profiles:  []database.Profile{phoneMatch},
			senderKey: "5215550001111",
			wantName:  "for-maria",
		},
		{
			name:      "active profile when no phone matches",
			profiles:  []database.Profile{first, active, phoneMatch},
			senderKey: "5219990000000@s.whatsapp.net",
			wantName:  "default-active",
		},
		{
			name:      "first profile as last resort",
			profiles:  []database.Profile{first, phoneMatch},
			senderKey: "5219990000000@s.whatsapp.net",
			wantName:  "plain",
		},
		{
			name:      "non-numeric sender key falls through to active",
			profiles:  []database.Profile{active, phoneMatch},
			senderKey: "someone",
			wantName:  "default-active",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := database.ResolvePersona(tc.profiles, tc.senderKey)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a profile, got nil")
			}
			if got.Name != tc.wantName {
				t.Errorf("resolved %q, want %q", got.Name, tc.wantName)
			}
		})
	}
}
