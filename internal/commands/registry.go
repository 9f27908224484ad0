package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Message carries the inbound message fields handlers may need.
type Message struct {
	Sender     string
	SenderName string
	Body       string
	Timestamp  time.Time
}

// HandlerFunc produces reply text for a parsed command.
type HandlerFunc func(ctx context.Context, msg Message, args []string) (string, error)

// Handler is one registered command.
type Handler struct {
	Name        string
	Description string
	Execute     HandlerFunc
}

// Registry maps command names to handlers.
type Registry struct {
	prefix   string
	handlers map[string]Handler
}

// NewRegistry creates an empty registry for the given command prefix.
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix:   prefix,
		handlers: make(map[string]Handler),
	}
}

// Prefix returns the configured command prefix.
func (r *Registry) Prefix() string {
	return r.prefix
}

// Register adds a handler, replacing any previous one with the same name.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Name] = h
}

// Get looks up a handler by name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns registered command names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownReply builds the reply for an unrecognized command name. This is a
// normal user-visible reply, not an error path.
func (r *Registry) UnknownReply(name string) string {
	if name == "" {
		return fmt.Sprintf("Unknown command. Use %shelp to see the available commands.", r.prefix)
	}
	return fmt.Sprintf("Unknown command: %s. Use %shelp to see the available commands.", name, r.prefix)
}

// Dispatch executes the invocation and returns the reply text. Empty or
// unregistered names produce the unknown-command reply with a nil error.
func (r *Registry) Dispatch(ctx context.Context, inv *Invocation, msg Message) (string, error) {
	handler, ok := r.handlers[inv.Name]
	if inv.Name == "" || !ok {
		return r.UnknownReply(inv.Name), nil
	}
	return handler.Execute(ctx, msg, inv.Args)
}

// HelpText renders the command list for the help reply.
func (r *Registry) HelpText(botName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 *%s commands:*\n\n", botName)
	for _, name := range r.Names() {
		fmt.Fprintf(&b, "%s%s - %s\n", r.prefix, name, r.handlers[name].Description)
	}
	b.WriteString("\nYou can also send any message without a command and I will reply using AI.")
	return b.String()
}
