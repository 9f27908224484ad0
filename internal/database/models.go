package database

import "time"

// Tone values a profile may carry. Unknown values fall back to a neutral
// directive at prompt-assembly time.
const (
	ToneFriendly     = "friendly"
	ToneCasual       = "casual"
	ToneProfessional = "professional"
	TonePlayful      = "playful"
	ToneSerious      = "serious"
)

// Profile is a persona used to shape generated replies. Exactly one profile
// is active system-wide; a profile whose Phone matches a sender key acts as
// a per-sender override.
type Profile struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Name              string `db:"name"`
	Phone             string `db:"phone"`
	Tone              string `db:"tone"`
	SystemInstruction string `db:"system_instruction"`
	CustomStyle       string `db:"custom_style"`
	LearnFromChat     string `db:"learn_from_chat"`
	Active            bool   `db:"active"`
}

// MessageLog records one handled exchange: the inbound message (or combined
// burst) and the reply that was sent for it.
type MessageLog struct {
	ID        uint      `db:"id"`
	CreatedAt time.Time `db:"created_at"`

	Sender      string    `db:"sender"`
	SenderName  string    `db:"sender_name"`
	Body        string    `db:"body"`
	Reply       string    `db:"reply"`
	ProfileUsed string    `db:"profile_used"`
	Timestamp   time.Time `db:"timestamp"`
}

// BlacklistEntry marks a sender whose messages are dropped before routing.
type BlacklistEntry struct {
	Sender    string    `db:"sender"`
	CreatedAt time.Time `db:"created_at"`
}
