package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// encoder is satisfied by *gopus.Encoder.
type encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// pcmSource is raw PCM plus a way to learn how the producer ended.
type pcmSource interface {
	io.Reader
	Wait() error
	Close() error
}

// opusFrames cuts PCM into 20ms frames and encodes each one.
type opusFrames struct {
	pcm     pcmSource
	enc     encoder
	pcmBuf  []byte
	samples []int16
	done    bool
}

func newOpusFrames(pcm pcmSource, enc encoder) *opusFrames {
	return &opusFrames{
		pcm:     pcm,
		enc:     enc,
		pcmBuf:  make([]byte, FrameSize*Channels*2),
		samples: make([]int16, FrameSize*Channels),
	}
}

// ReadFrame returns the next Opus frame. A trailing partial frame is padded
// with silence.
func (o *opusFrames) ReadFrame() ([]byte, error) {
	if o.done {
		return nil, io.EOF
	}

	n, err := io.ReadFull(o.pcm, o.pcmBuf)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF):
		clear(o.pcmBuf[n:])
		o.done = true
	case errors.Is(err, io.EOF):
		o.done = true
		if wErr := o.pcm.Wait(); wErr != nil {
			return nil, wErr
		}
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("read error: %w", err)
	}

	for i := range o.samples {
		o.samples[i] = int16(binary.LittleEndian.Uint16(o.pcmBuf[i*2 : i*2+2]))
	}

	frame, err := o.enc.Encode(o.samples, FrameSize, maxOpusFrameBytes)
	if err != nil {
		return nil, fmt.Errorf("encode error: %w", err)
	}
	return frame, nil
}

func (o *opusFrames) Close() error {
	return o.pcm.Close()
}
