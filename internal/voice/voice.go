// Package voice owns the single voice connection of the process.
package voice

import (
	"context"
	"errors"
	"fmt"
)

// Sink is the audio side of a connection: where Opus frames go.
type Sink interface {
	Speaking(speaking bool) error
	OpusSend() chan<- []byte
}

// Connection is a live voice connection.
type Connection interface {
	Sink
	GuildID() string
	ChannelID() string
	Disconnect() error
}

// Joiner opens voice connections. Join returns once the connection is ready
// or ctx is done. On failure it may still return the partially created
// connection so the caller can destroy it.
type Joiner interface {
	Join(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Subscriber receives the active connection. The player implements it.
type Subscriber interface {
	Subscribe(sink Sink)
	Unsubscribe()
}

// State of the managed session.
type State int

const (
	StateAbsent State = iota
	StateConnecting
	StateReady
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ConnectError is returned when joining a voice channel fails or times out.
type ConnectError struct {
	GuildID   string
	ChannelID string
	Err       error
}

func (e *ConnectError) Error() string {
	if e.Timeout() {
		return fmt.Sprintf("voice connect to channel %s timed out", e.ChannelID)
	}
	return fmt.Sprintf("voice connect to channel %s: %v", e.ChannelID, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Timeout reports whether the connection did not become ready in time.
func (e *ConnectError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
