// Package cmd is the text command core: a command has a name, a short
// description and Run(ctx, invocation). Transports decide which messages
// reach it.
package cmd

import "context"

// Invocation is what a transport hands to a command. Data is transport
// specific, for Discord it is the triggering message.
type Invocation struct {
	Name string
	Args []string
	Data any
}

// Command is a named action triggered by a prefixed message.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}
