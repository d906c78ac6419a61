package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"layeh.com/gopus"
)

// FFmpegOpus decodes any format ffmpeg understands to 48kHz stereo PCM and
// encodes it with libopus.
type FFmpegOpus struct {
	Path    string
	Bitrate int
}

func (t *FFmpegOpus) Open(ctx context.Context, r io.Reader) (FrameSource, error) {
	pcm, err := decode(ctx, t.path(), r)
	if err != nil {
		return nil, err
	}

	enc, err := gopus.NewEncoder(SampleRate, Channels, gopus.Audio)
	if err != nil {
		pcm.Close()
		return nil, fmt.Errorf("opus encoder: %w", err)
	}
	if t.Bitrate > 0 {
		enc.SetBitrate(t.Bitrate)
	}

	return newOpusFrames(pcm, enc), nil
}

func (t *FFmpegOpus) path() string {
	if t.Path == "" {
		return "ffmpeg"
	}
	return t.Path
}

// pcmStream is ffmpeg's stdout; Close stops the process.
type pcmStream struct {
	io.Reader
	cmd    *exec.Cmd
	stderr *limitedBuffer

	once    sync.Once
	waitErr error
}

// decode starts ffmpeg reading the compressed stream from stdin and writing
// signed 16-bit little-endian PCM to stdout.
func decode(ctx context.Context, ffmpegPath string, r io.Reader) (*pcmStream, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", "pipe:0",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)
	cmd.Stdin = r
	cmd.WaitDelay = 2 * time.Second

	stderr := &limitedBuffer{max: 4 << 10}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}

	return &pcmStream{Reader: stdout, cmd: cmd, stderr: stderr}, nil
}

// Wait reaps the process and reports a decode failure.
func (p *pcmStream) Wait() error {
	p.once.Do(func() {
		if err := p.cmd.Wait(); err != nil {
			msg := strings.TrimSpace(p.stderr.String())
			if msg != "" {
				p.waitErr = fmt.Errorf("ffmpeg: %w: %s", err, msg)
			} else {
				p.waitErr = fmt.Errorf("ffmpeg: %w", err)
			}
		}
	})
	return p.waitErr
}

func (p *pcmStream) Close() error {
	if p.cmd.ProcessState == nil && p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	err := p.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed on purpose
		return nil
	}
	return err
}

// limitedBuffer keeps the first max bytes written to it.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.max - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
