// Package memory keeps a bounded per-sender log of conversation turns used
// to build multi-turn context for reply generation.
package memory

import "sync"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one role-tagged utterance in conversation memory.
type Turn struct {
	Role string
	Text string
}

// Store holds per-sender turn sequences, each capped at a fixed maximum.
// When the cap is exceeded the oldest turns are evicted first.
type Store struct {
	mu    sync.Mutex
	turns map[string][]Turn
	cap   int
}

// NewStore creates a Store evicting down to maxTurns entries per sender.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = 40
	}
	return &Store{
		turns: make(map[string][]Turn),
		cap:   maxTurns,
	}
}

// Record appends a user prompt and the assistant reply for the sender,
// trimming the sequence to the cap afterwards.
func (s *Store) Record(senderKey, userText, replyText string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns[senderKey],
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleAssistant, Text: replyText},
	)
	if excess := len(turns) - s.cap; excess > 0 {
		turns = turns[excess:]
	}
	s.turns[senderKey] = turns
}

// Recent returns up to the last n turns for the sender in order.
func (s *Store) Recent(senderKey string, n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.turns[senderKey]
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Len reports the number of stored turns for the sender.
func (s *Store) Len(senderKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns[senderKey])
}

// Forget drops all memory for the sender.
func (s *Store) Forget(senderKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, senderKey)
}
