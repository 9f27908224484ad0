package memory_test

import (
	"fmt"
	"testing"

	"github.com/edgard/zapbot/internal/memory"
)

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	s := memory.NewStore(40)
	s.Record("a@s.whatsapp.net", "hola", "que tal")
	s.Record("a@s.whatsapp.net", "todo bien?", "ajam")

	turns := s.Recent("a@s.whatsapp.net", 10)
	if len(turns) != 4 {
		t.Fatalf("got %d turns, want 4", len(turns))
	}

	want := []memory.Turn{
		{Role: memory.RoleUser, Text: "hola"},
		{Role: memory.RoleAssistant, Text: "que tal"},
		{Role: memory.RoleUser, Text: "todo bien?"},
		{Role: memory.RoleAssistant, Text: "ajam"},
	}
	for i, turn := range turns {
		if turn != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, turn, want[i])
		}
	}
}

func TestRecentLimitsToLastN(t *testing.T) {
	t.Parallel()

	s := memory.NewStore(40)
	for i := 0; i < 5; i++ {
		s.Record("a@s.whatsapp.net", fmt.Sprintf("q%d", i), fmt.Sprintf("r%d", i))
	}

	turns := s.Recent("a@s.whatsapp.net", 4)
	if len(turns) != 4 {
		t.Fatalf("got %d turns, want 4", len(turns))
	}
	if turns[0].Text != "q3" || turns[3].Text != "r4" {
		t.Errorf("unexpected window: first=%q last=%q", turns[0].Text, turns[3].Text)
	}
}

func TestCapEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	s := memory.NewStore(6)
	for i := 0; i < 10; i++ {
		s.Record("a@s.whatsapp.net", fmt.Sprintf("q%d", i), fmt.Sprintf("r%d", i))
	}

	if got := s.Len("a@s.whatsapp.net"); got != 6 {
		t.Fatalf("Len = %d, want 6", got)
	}
	turns := s.Recent("a@s.whatsapp.net", 0)
	if turns[0].Text != "q7" {
		t.Errorf("oldest surviving turn = %q, want q7", turns[0].Text)
	}
}

func TestSendersAreIsolated(t *testing.T) {
	t.Parallel()

	s := memory.NewStore(40)
	s.Record("a@s.whatsapp.net", "hola", "ola")

	if got := s.Len("b@s.whatsapp.net"); got != 0 {
		t.Fatalf("unrelated sender has %d turns", got)
	}
	if turns := s.Recent("b@s.whatsapp.net", 10); len(turns) != 0 {
		t.Fatalf("unrelated sender returned turns: %v", turns)
	}
}

func TestForget(t *testing.T) {
	t.Parallel()

	s := memory.NewStore(40)
	s.Record("a@s.whatsapp.net", "hola", "ola")
	s.Forget("a@s.whatsapp.net")

	if got := s.Len("a@s.whatsapp.net"); got != 0 {
		t.Fatalf("Len = %d after Forget, want 0", got)
	}
}

func TestRecentReturnsACopy(t *testing.T) {
	t.Parallel()

	s := memory.NewStore(40)
	s.Record("a@s.whatsapp.net", "hola", "ola")

	turns := s.Recent("a@s.whatsapp.net", 10)
	turns[0].Text = "mutated"

	if again := s.Recent("a@s.whatsapp.net", 10); again[0].Text != "hola" {
		t.Fatal("Recent exposed internal state")
	}
}
