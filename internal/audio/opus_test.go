package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

type fakePCM struct {
	*bytes.Reader
	waitErr error
	closed  bool
}

func (f *fakePCM) Wait() error  { return f.waitErr }
func (f *fakePCM) Close() error { f.closed = true; return nil }

// recordingEncoder returns the first sample of each frame as the payload.
type recordingEncoder struct {
	frames [][]int16
}

func (e *recordingEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	if frameSize != FrameSize {
		return nil, errors.New("unexpected frame size")
	}
	cp := make([]int16, len(pcm))
	copy(cp, pcm)
	e.frames = append(e.frames, cp)
	return []byte{byte(pcm[0])}, nil
}

func pcmOf(frames int, extraSamples int) []byte {
	total := frames*FrameSize*Channels + extraSamples
	buf := make([]byte, total*2)
	for i := 0; i < total; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(i/(FrameSize*Channels)+1))
	}
	return buf
}

func readAll(t *testing.T, src FrameSource) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		frame, err := src.ReadFrame()
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadFrame failed: %v", err)
		}
		out = append(out, frame)
	}
}

func TestOpusFrames_WholeFrames(t *testing.T) {
	enc := &recordingEncoder{}
	src := newOpusFrames(&fakePCM{Reader: bytes.NewReader(pcmOf(3, 0))}, enc)

	frames := readAll(t, src)
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f[0] != byte(i+1) {
			t.Errorf("frame %d: expected marker %d, got %d", i, i+1, f[0])
		}
	}
}

func TestOpusFrames_PadsTrailingPartialFrame(t *testing.T) {
	enc := &recordingEncoder{}
	src := newOpusFrames(&fakePCM{Reader: bytes.NewReader(pcmOf(1, 10))}, enc)

	frames := readAll(t, src)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}

	last := enc.frames[1]
	if last[0] != 2 || last[9] != 2 {
		t.Errorf("expected the partial samples to be kept, got %v", last[:10])
	}
	for i := 10; i < len(last); i++ {
		if last[i] != 0 {
			t.Fatalf("expected silence padding at sample %d, got %d", i, last[i])
		}
	}

	if _, err := src.ReadFrame(); err != io.EOF {
		t.Errorf("expected io.EOF after the padded frame, got %v", err)
	}
}

func TestOpusFrames_ReportsDecoderFailure(t *testing.T) {
	decodeErr := errors.New("ffmpeg: invalid data found when processing input")
	src := newOpusFrames(&fakePCM{Reader: bytes.NewReader(nil), waitErr: decodeErr}, &recordingEncoder{})

	if _, err := src.ReadFrame(); !errors.Is(err, decodeErr) {
		t.Fatalf("expected decoder error, got %v", err)
	}
}

func TestOpusFrames_CloseClosesPCM(t *testing.T) {
	pcm := &fakePCM{Reader: bytes.NewReader(nil)}
	src := newOpusFrames(pcm, &recordingEncoder{})

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !pcm.closed {
		t.Error("expected the PCM source to be closed")
	}
}

func TestLimitedBuffer(t *testing.T) {
	b := &limitedBuffer{max: 5}
	n, err := b.Write([]byte("hello world"))
	if err != nil || n != 11 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	_, _ = b.Write([]byte("more"))
	if b.String() != "hello" {
		t.Errorf("expected 'hello', got %q", b.String())
	}
}
