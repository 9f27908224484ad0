// Package queue implements the per-sender message aggregation queue. Rapid
// consecutive freeform messages from one sender are coalesced into a single
// prompt before reply generation, while messages from senders that have
// been quiet are flushed immediately.
package queue

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// PromptSeparator joins buffered messages into one prompt, preserving
// arrival order.
const PromptSeparator = "\n\n"

// FlushFunc receives the combined prompt for a sender when its buffer is
// flushed. It is invoked on its own goroutine and must not call back into
// the Aggregator synchronously from under its own lockless guarantees; new
// messages arriving while it runs start a fresh buffer.
type FlushFunc func(senderKey, prompt string)

// Options configures the aggregation behavior.
type Options struct {
	// DebounceWindow is how long after the most recent buffered message an
	// automatic flush fires. Each new message resets the window.
	DebounceWindow time.Duration
	// MaxBurstSize caps the buffer; the message that fills it triggers an
	// immediate flush instead of arming a timer.
	MaxBurstSize int
}

type entry struct {
	messages     []string
	lastActivity time.Time
	timer        *time.Timer
}

// Aggregator owns the sender-keyed buffer table. All buffer mutation
// happens under a single mutex; the buffer is snapshotted and cleared
// before the flush callback runs, so in-flight generation can never race
// with new intake for the same sender.
type Aggregator struct {
	opts   Options
	flush  FlushFunc
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool
}

// New creates an Aggregator delivering flushed prompts to fn.
func New(opts Options, fn FlushFunc, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = 3 * time.Second
	}
	if opts.MaxBurstSize <= 0 {
		opts.MaxBurstSize = 5
	}
	return &Aggregator{
		opts:    opts,
		flush:   fn,
		logger:  logger.With("component", "aggregator"),
		entries: make(map[string]*entry),
	}
}

// Enqueue adds a freeform message to the sender's buffer.
//
// A sender with no table entry (first contact, or idle long enough to have
// been reaped) is flushed immediately so isolated messages get a reply with
// no added latency. A sender with an existing entry slides the debounce
// window; filling the buffer to capacity flushes at once.
func (a *Aggregator) Enqueue(senderKey, body string) {
	a.mu.Lock()

	if a.closed {
		a.mu.Unlock()
		return
	}

	now := time.Now()
	e, warm := a.entries[senderKey]
	if !warm {
		e = &entry{}
		a.entries[senderKey] = e
	}

	e.messages = append(e.messages, body)
	e.lastActivity = now
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	if !warm || len(e.messages) >= a.opts.MaxBurstSize {
		a.flushLocked(senderKey, e)
		a.mu.Unlock()
		return
	}

	e.timer = time.AfterFunc(a.opts.DebounceWindow, func() {
		a.flushSender(senderKey)
	})
	a.logger.Debug("Message buffered, debounce window reset",
		"sender", senderKey, "buffered", len(e.messages))
	a.mu.Unlock()
}

// Flush forces a flush of the sender's buffer. Flushing an empty or
// unknown buffer is a no-op.
func (a *Aggregator) Flush(senderKey string) {
	a.flushSender(senderKey)
}

func (a *Aggregator) flushSender(senderKey string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	e, ok := a.entries[senderKey]
	if !ok {
		return
	}
	a.flushLocked(senderKey, e)
}

// flushLocked snapshots and clears the buffer while the lock is held, then
// hands the combined prompt to the flush callback on a new goroutine. The
// entry itself stays in the table until the reaper removes it.
func (a *Aggregator) flushLocked(senderKey string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if len(e.messages) == 0 {
		return
	}

	msgs := e.messages
	e.messages = nil

	prompt := strings.Join(msgs, PromptSeparator)
	a.logger.Debug("Flushing sender buffer", "sender", senderKey, "messages", len(msgs))
	go a.flush(senderKey, prompt)
}

// Reap removes entries that are empty, timer-free, and idle for longer
// than maxAge. Buffers with pending content are never removed; they always
// own a flush timer. It returns the number of entries removed.
func (a *Aggregator) Reap(maxAge time.Duration) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, e := range a.entries {
		if len(e.messages) == 0 && e.timer == nil && now.Sub(e.lastActivity) > maxAge {
			delete(a.entries, key)
			removed++
		}
	}
	if removed > 0 {
		a.logger.Debug("Reaped idle sender entries", "removed", removed, "remaining", len(a.entries))
	}
	return removed
}

// Len reports the number of tracked sender entries.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Pending reports the number of buffered messages for the sender.
func (a *Aggregator) Pending(senderKey string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[senderKey]; ok {
		return len(e.messages)
	}
	return 0
}

// Close cancels all timers and drops all buffers. Further Enqueue calls
// are ignored.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	for _, e := range a.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	a.entries = make(map[string]*entry)
}
