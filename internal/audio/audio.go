// Package audio turns compressed audio streams into Opus frames for Discord.
package audio

import (
	"context"
	"io"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz

	// maxOpusFrameBytes bounds a single encoded frame.
	maxOpusFrameBytes = 4000
)

// FrameSource yields encoded Opus frames. ReadFrame returns io.EOF after the
// last frame.
type FrameSource interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Transcoder opens a FrameSource over an arbitrary compressed stream.
type Transcoder interface {
	Open(ctx context.Context, r io.Reader) (FrameSource, error)
}
