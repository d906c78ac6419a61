package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/voice"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const readyPollInterval = 50 * time.Millisecond

// Joiner opens voice connections with ChannelVoiceJoin. The bot joins
// unmuted and deafened since it only speaks.
type Joiner struct {
	dg  *discordgo.Session
	log zerolog.Logger
}

func NewJoiner(dg *discordgo.Session, logger zerolog.Logger) *Joiner {
	return &Joiner{dg: dg, log: logging.Component(logger, "voice_join")}
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Join blocks until the connection is ready or ctx is done. ChannelVoiceJoin
// itself cannot be canceled, so a join that completes after ctx is done is
// disconnected in the background.
func (j *Joiner) Join(ctx context.Context, guildID, channelID string) (voice.Connection, error) {
	results := make(chan joinResult, 1)
	go func() {
		vc, err := j.dg.ChannelVoiceJoin(guildID, channelID, false, true)
		results <- joinResult{vc: vc, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			if res.vc != nil {
				return &Connection{vc: res.vc}, fmt.Errorf("failed to join voice channel: %w", res.err)
			}
			return nil, fmt.Errorf("failed to join voice channel: %w", res.err)
		}
		conn := &Connection{vc: res.vc}
		if err := waitReady(ctx, res.vc); err != nil {
			return conn, err
		}
		return conn, nil

	case <-ctx.Done():
		go func() {
			res := <-results
			if res.vc != nil {
				if err := res.vc.Disconnect(); err != nil {
					j.log.Warn().Err(err).Str("channel_id", channelID).Msg("Failed to drop late voice connection")
				}
			}
		}()
		return nil, ctx.Err()
	}
}

func waitReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		vc.RLock()
		ready := vc.Ready
		vc.RUnlock()
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Connection adapts *discordgo.VoiceConnection to voice.Connection.
type Connection struct {
	vc *discordgo.VoiceConnection
}

func (c *Connection) GuildID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.GuildID
}

func (c *Connection) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *Connection) Speaking(speaking bool) error { return c.vc.Speaking(speaking) }

func (c *Connection) OpusSend() chan<- []byte { return c.vc.OpusSend }

func (c *Connection) Disconnect() error { return c.vc.Disconnect() }
