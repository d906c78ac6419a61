package command

import (
	"context"

	"github.com/keshon/speakbot/pkg/cmd"
)

// Sessions is the part of the voice manager commands need.
type Sessions interface {
	Teardown() error
}

// LeaveCommand disconnects the bot from voice. Without a session it does
// nothing.
type LeaveCommand struct {
	Sessions Sessions
}

func (c *LeaveCommand) Name() string        { return "leave" }
func (c *LeaveCommand) Description() string { return "Disconnect from the voice channel" }

func (c *LeaveCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	return c.Sessions.Teardown()
}
