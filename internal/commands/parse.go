// Package commands implements inbound message classification and the
// command registry: a message starting with the configured prefix is a
// command invocation, everything else is freeform text.
package commands

import "strings"

// Invocation is a parsed command: the lower-cased first token after the
// prefix and the remaining whitespace-separated arguments. A body equal to
// just the prefix yields an Invocation with an empty Name, which dispatch
// treats as an unknown command.
type Invocation struct {
	Name string
	Args []string
}

// Parse classifies a message body. It returns the parsed invocation and
// true when the body starts with the prefix, or nil and false for freeform
// text. Parse has no side effects.
func Parse(body, prefix string) (*Invocation, bool) {
	if prefix == "" || !strings.HasPrefix(body, prefix) {
		return nil, false
	}

	fields := strings.Fields(strings.TrimPrefix(body, prefix))
	if len(fields) == 0 {
		return &Invocation{}, true
	}

	return &Invocation{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
	}, true
}
