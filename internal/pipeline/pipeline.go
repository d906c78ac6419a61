// Package pipeline turns a chat message from the authorized user into speech
// in their voice channel.
package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/metrics"
	"github.com/keshon/speakbot/internal/player"
	"github.com/keshon/speakbot/internal/tts"
	"github.com/keshon/speakbot/internal/voice"
	"github.com/keshon/speakbot/pkg/cmd"

	"github.com/rs/zerolog"
)

// Message is a chat message as seen by the pipeline.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	AuthorID  string
	AuthorBot bool
	Content   string
}

// Platform is the chat side: voice-state lookup, reactions and replies.
type Platform interface {
	// UserVoiceChannel returns "" when the user is not in a voice channel.
	UserVoiceChannel(guildID, userID string) (string, error)
	AddReaction(channelID, messageID, emoji string) error
	RemoveAllReactions(channelID, messageID string) error
	Reply(channelID, messageID, content string) error
}

// Sessions owns the single voice connection.
type Sessions interface {
	EnsureConnected(ctx context.Context, guildID, channelID string) (voice.Connection, error)
	Teardown() error
}

// Fetcher streams synthesized speech for text.
type Fetcher interface {
	FetchSpeechStream(ctx context.Context, text string) (io.ReadCloser, error)
}

// Player plays an audio stream on the current voice connection.
type Player interface {
	Play(ctx context.Context, stream io.ReadCloser) (*player.Handle, error)
}

// Outcome is how a message left the pipeline.
type Outcome string

const (
	OutcomeIgnored     Outcome = "ignored"
	OutcomeCommand     Outcome = "command"
	OutcomeNoVoice     Outcome = "no_voice"
	OutcomeSuccess     Outcome = "success"
	OutcomeFailure     Outcome = "failure"
	OutcomeInterrupted Outcome = "interrupted"
	OutcomeCanceled    Outcome = "canceled"
)

const (
	replyTTSFailed      = "Failed to generate TTS. Please check the bot logs."
	replyConnectFailed  = "Failed to join your voice channel. Please check the bot logs."
	replyConnectTimeout = "Timed out joining your voice channel. Please try again."
	replyPlaybackError  = "Failed to play the generated audio. Please check the bot logs."
)

// DefaultPlaybackTimeout bounds one trigger from TTS request to end of audio.
const DefaultPlaybackTimeout = 10 * time.Minute

// Config selects who is spoken for and how long a playback may run.
type Config struct {
	TargetUserID       string
	TargetChannelID    string
	PlaybackTimeout    time.Duration
	LeaveAfterPlayback bool
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	Platform Platform
	Sessions Sessions
	Fetcher  Fetcher
	Player   Player
	Commands *cmd.Registry
}

type Pipeline struct {
	cfg  Config
	deps Deps

	// one-slot in-flight guard; !leave does not take it
	guard chan struct{}
	log   zerolog.Logger
}

// New builds a Pipeline. A nil Commands gets an empty registry.
func New(cfg Config, deps Deps, logger zerolog.Logger) *Pipeline {
	if deps.Commands == nil {
		deps.Commands = cmd.NewRegistry("")
	}
	if cfg.PlaybackTimeout <= 0 {
		cfg.PlaybackTimeout = DefaultPlaybackTimeout
	}
	return &Pipeline{
		cfg:   cfg,
		deps:  deps,
		guard: make(chan struct{}, 1),
		log:   logging.Component(logger, "pipeline"),
	}
}

// HandleMessage runs one inbound message through the pipeline. Recoverable
// errors end here as a failure marker and a reply.
func (p *Pipeline) HandleMessage(ctx context.Context, msg Message) Outcome {
	out := p.handle(ctx, msg)
	if out != OutcomeIgnored {
		metrics.RecordTrigger(string(out))
	}
	return out
}

func (p *Pipeline) authorized(msg Message) bool {
	return msg.AuthorID == p.cfg.TargetUserID &&
		msg.ChannelID == p.cfg.TargetChannelID &&
		!msg.AuthorBot
}

func (p *Pipeline) handle(ctx context.Context, msg Message) Outcome {
	if !p.authorized(msg) {
		return OutcomeIgnored
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return OutcomeIgnored
	}

	log := p.log.With().Str("message_id", msg.ID).Str("guild_id", msg.GuildID).Logger()

	if c, inv, ok := p.deps.Commands.Match(text); ok {
		inv.Data = msg
		if err := c.Run(ctx, inv); err != nil {
			log.Error().Err(err).Str("command", c.Name()).Msg("Command failed")
		}
		return OutcomeCommand
	}

	channelID, err := p.deps.Platform.UserVoiceChannel(msg.GuildID, msg.AuthorID)
	if err != nil {
		log.Warn().Err(err).Msg("Voice state lookup failed")
		return OutcomeNoVoice
	}
	if channelID == "" {
		log.Debug().Msg("Author is not in a voice channel")
		return OutcomeNoVoice
	}

	select {
	case p.guard <- struct{}{}:
	case <-ctx.Done():
		return OutcomeCanceled
	}
	defer func() { <-p.guard }()

	log = log.With().Str("channel_id", channelID).Logger()
	status := newStatusSignal(p.deps.Platform, msg, log)
	status.set(MarkerProcessing)

	if _, err := p.deps.Sessions.EnsureConnected(ctx, msg.GuildID, channelID); err != nil {
		return p.fail(log, status, msg, err)
	}

	playCtx, cancel := context.WithTimeout(ctx, p.cfg.PlaybackTimeout)
	defer cancel()

	// full raw text, as typed
	stream, err := p.deps.Fetcher.FetchSpeechStream(playCtx, msg.Content)
	if err != nil {
		return p.fail(log, status, msg, err)
	}

	h, err := p.deps.Player.Play(playCtx, stream)
	if err != nil {
		return p.fail(log, status, msg, err)
	}
	status.set(MarkerPlaying)
	log.Info().Str("playback_id", h.ID).Msg("Speaking message")

	ev, err := h.Wait(ctx)
	if err != nil {
		status.set(MarkerFailure)
		return OutcomeCanceled
	}

	switch ev.Status {
	case player.StatusFinished:
		status.set(MarkerSuccess)
		if p.cfg.LeaveAfterPlayback {
			if err := p.deps.Sessions.Teardown(); err != nil {
				log.Warn().Err(err).Msg("Failed to leave after playback")
			}
		}
		return OutcomeSuccess
	case player.StatusInterrupted:
		log.Info().Str("playback_id", ev.PlaybackID).Msg("Playback interrupted")
		status.set(MarkerFailure)
		return OutcomeInterrupted
	default:
		return p.fail(log, status, msg, ev.Err)
	}
}

func (p *Pipeline) fail(log zerolog.Logger, status *statusSignal, msg Message, err error) Outcome {
	log.Error().Err(err).Msg("Trigger failed")
	status.set(MarkerFailure)
	if rErr := p.deps.Platform.Reply(msg.ChannelID, msg.ID, replyFor(err)); rErr != nil {
		log.Warn().Err(rErr).Msg("Failed to send failure reply")
	}
	return OutcomeFailure
}

func replyFor(err error) string {
	var connErr *voice.ConnectError
	var provErr *tts.ProviderError
	var playErr *player.PlaybackError

	switch {
	case errors.As(err, &connErr):
		if connErr.Timeout() {
			return replyConnectTimeout
		}
		return replyConnectFailed
	case errors.As(err, &provErr):
		return replyTTSFailed
	case errors.As(err, &playErr):
		return replyPlaybackError
	}
	return replyTTSFailed
}
