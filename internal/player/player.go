package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/keshon/speakbot/internal/audio"
	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/metrics"
	"github.com/keshon/speakbot/internal/voice"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultSendTimeout bounds how long a single Opus frame may wait for the
// voice transport.
const DefaultSendTimeout = 5 * time.Second

type Status string

const (
	StatusFinished    Status = "finished"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

var (
	ErrNoSink      = errors.New("no voice connection subscribed")
	ErrTimeout     = errors.New("playback timed out")
	ErrSendTimeout = errors.New("voice transport did not accept audio in time")
)

// PlaybackError is a player-level fault for one playback.
type PlaybackError struct {
	PlaybackID string
	Err        error
}

func (e *PlaybackError) Error() string {
	if e.PlaybackID == "" {
		return "playback: " + e.Err.Error()
	}
	return fmt.Sprintf("playback %s: %v", e.PlaybackID, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// Event is the terminal notification of one playback.
type Event struct {
	PlaybackID string
	Status     Status
	Err        error
	Duration   time.Duration
}

// Handle belongs to exactly one Play call and receives exactly one Event.
type Handle struct {
	ID   string
	done chan Event
}

// Wait blocks for the terminal event or until ctx is done.
func (h *Handle) Wait(ctx context.Context) (Event, error) {
	select {
	case ev := <-h.done:
		return ev, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

type playback struct {
	id        string
	cancel    context.CancelFunc
	exited    chan struct{}
	mu        sync.Mutex
	preempted bool
}

func (pb *playback) interrupt() {
	pb.mu.Lock()
	pb.preempted = true
	pb.mu.Unlock()
	pb.cancel()
	<-pb.exited
}

func (pb *playback) wasPreempted() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.preempted
}

// Player is the single audio player of the process. A new Play preempts the
// running playback; there is no queue.
type Player struct {
	playMu sync.Mutex // serializes Play against sink changes

	mu        sync.Mutex
	sink      voice.Sink
	current   *playback
	listeners []func(Event)

	transcoder  audio.Transcoder
	sendTimeout time.Duration
	log         zerolog.Logger
}

// New creates a Player that decodes streams with transcoder.
func New(transcoder audio.Transcoder, logger zerolog.Logger) *Player {
	return &Player{
		transcoder:  transcoder,
		sendTimeout: DefaultSendTimeout,
		log:         logging.Component(logger, "player"),
	}
}

// Subscribe routes future playback to sink. A playback running on a
// different sink is interrupted.
func (p *Player) Subscribe(sink voice.Sink) {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.mu.Lock()
	prev := p.current
	changed := p.sink != sink
	p.sink = sink
	p.mu.Unlock()

	if changed && prev != nil {
		prev.interrupt()
	}
}

// Unsubscribe detaches the sink and interrupts any running playback,
// including one whose Play is still starting.
func (p *Player) Unsubscribe() {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.mu.Lock()
	prev := p.current
	p.sink = nil
	p.mu.Unlock()

	if prev != nil {
		prev.interrupt()
	}
}

// OnEvent registers fn for every terminal event. Events carry the playback id.
func (p *Player) OnEvent(fn func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// IsPlaying reports whether a playback is running.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Play starts stream on the subscribed sink and returns its handle. The
// player owns stream from here on and closes it.
func (p *Player) Play(ctx context.Context, stream io.ReadCloser) (*Handle, error) {
	p.playMu.Lock()
	defer p.playMu.Unlock()

	p.mu.Lock()
	sink := p.sink
	prev := p.current
	p.mu.Unlock()

	if sink == nil {
		stream.Close()
		return nil, &PlaybackError{Err: ErrNoSink}
	}
	if prev != nil {
		p.log.Info().Str("playback_id", prev.id).Msg("Preempting current playback")
		prev.interrupt()
	}

	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)

	src, err := p.transcoder.Open(runCtx, stream)
	if err != nil {
		cancel()
		stream.Close()
		return nil, &PlaybackError{PlaybackID: id, Err: err}
	}

	pb := &playback{id: id, cancel: cancel, exited: make(chan struct{})}
	h := &Handle{ID: id, done: make(chan Event, 1)}

	p.mu.Lock()
	p.current = pb
	p.mu.Unlock()

	p.log.Info().Str("playback_id", id).Msg("Now playing")
	go p.run(runCtx, pb, h, sink, src, stream)

	return h, nil
}

func (p *Player) run(ctx context.Context, pb *playback, h *Handle, sink voice.Sink, src audio.FrameSource, stream io.ReadCloser) {
	defer close(pb.exited)
	defer pb.cancel()

	start := time.Now()
	if err := sink.Speaking(true); err != nil {
		p.log.Warn().Err(err).Str("playback_id", pb.id).Msg("Failed to set speaking state")
	}

	err := p.pump(ctx, sink, src)

	if sErr := sink.Speaking(false); sErr != nil {
		p.log.Debug().Err(sErr).Str("playback_id", pb.id).Msg("Failed to clear speaking state")
	}
	// The HTTP body goes first so ffmpeg's stdin copier is not left blocked.
	stream.Close()
	if cErr := src.Close(); cErr != nil {
		p.log.Debug().Err(cErr).Str("playback_id", pb.id).Msg("Decoder close error")
	}

	ev := Event{PlaybackID: pb.id, Duration: time.Since(start)}
	switch {
	case err == nil:
		ev.Status = StatusFinished
	case pb.wasPreempted():
		ev.Status = StatusInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		ev.Status = StatusFailed
		ev.Err = &PlaybackError{PlaybackID: pb.id, Err: ErrTimeout}
	case errors.Is(err, context.Canceled):
		ev.Status = StatusInterrupted
	default:
		ev.Status = StatusFailed
		ev.Err = &PlaybackError{PlaybackID: pb.id, Err: err}
	}

	p.mu.Lock()
	if p.current == pb {
		p.current = nil
	}
	listeners := append(([]func(Event))(nil), p.listeners...)
	p.mu.Unlock()

	logEvt := p.log.Info()
	if ev.Err != nil {
		logEvt = p.log.Error().Err(ev.Err)
	}
	logEvt.Str("playback_id", pb.id).Str("status", string(ev.Status)).Dur("duration", ev.Duration).Msg("Playback ended")
	metrics.RecordPlayback(string(ev.Status), ev.Duration)

	h.done <- ev
	close(h.done)
	for _, fn := range listeners {
		fn(ev)
	}
}

func (p *Player) pump(ctx context.Context, sink voice.Sink, src audio.FrameSource) error {
	timer := time.NewTimer(p.sendTimeout)
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := src.ReadFrame()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}

		timer.Reset(p.sendTimeout)
		select {
		case sink.OpusSend() <- frame:
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrSendTimeout
		}
	}
}
