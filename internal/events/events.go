// Package events provides the in-process event broker connecting the bot
// pipeline to the web dashboard.
package events

import (
	"sync"
	"time"
)

// Event types published on the broker.
const (
	TypeQR      = "qr"
	TypeStatus  = "status"
	TypeMessage = "message"
)

// Event is one dashboard-visible occurrence: a QR code to scan, a
// connection state change, or a processed message exchange.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePayload is the data carried by TypeMessage events.
type MessagePayload struct {
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name,omitempty"`
	Body       string `json:"body"`
	Reply      string `json:"reply,omitempty"`
}

// Broker fans events out to subscribers. Publishing never blocks; a
// subscriber that falls behind loses events rather than stalling the bot.
type Broker struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	last Event
}

// NewBroker creates an empty event broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function
// releases the channel and must be called exactly once.
func (b *Broker) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to all current subscribers, dropping it for
// any subscriber whose buffer is full.
func (b *Broker) Publish(eventType string, data any) {
	evt := Event{Type: eventType, Data: data, Timestamp: time.Now()}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.last = evt
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Last returns the most recently published event, if any.
func (b *Broker) Last() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, !b.last.Timestamp.IsZero()
}
