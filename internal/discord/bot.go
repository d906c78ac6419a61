package discord

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/pipeline"
	"github.com/keshon/speakbot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// MessageHandler consumes inbound chat messages.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg pipeline.Message) pipeline.Outcome
}

// Bot is a Discord bot
type Bot struct {
	dg      *discordgo.Session
	handler MessageHandler
	retry   retrylimit.RetryConfig
	log     zerolog.Logger

	ctx context.Context
}

// NewSession creates an unopened session for token.
func NewSession(token string) (*discordgo.Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return dg, nil
}

// New creates a Bot on top of dg. Messages go to handler.
func New(dg *discordgo.Session, handler MessageHandler, logger zerolog.Logger) *Bot {
	log := logging.Component(logger, "discord")
	retry := retrylimit.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Msg("Discord login failed, retrying")
	}
	return &Bot{
		dg:      dg,
		handler: handler,
		retry:   retry,
		log:     log,
		ctx:     context.Background(),
	}
}

// Run opens the gateway and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx

	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)

	if err := retrylimit.WithRetry(ctx, b.retry, b.dg.Open); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("Shutdown signal received, closing Discord session")
	return nil
}

// configureIntents asks only for what the bot reads: guild and voice state
// caches plus message content.
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	name := ""
	if r.User != nil {
		name = r.User.Username
	}
	b.log.Info().Str("user", name).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	defer b.recoverHandler("message_create")

	msg, ok := toMessage(m)
	if !ok {
		return
	}
	b.handler.HandleMessage(b.ctx, msg)
}

// recoverHandler keeps one bad event from taking the process down.
func (b *Bot) recoverHandler(event string) {
	if r := recover(); r != nil {
		b.log.Error().
			Str("event", event).
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("Recovered from panic in event handler")
	}
}

func toMessage(m *discordgo.MessageCreate) (pipeline.Message, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return pipeline.Message{}, false
	}
	return pipeline.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		AuthorID:  m.Author.ID,
		AuthorBot: m.Author.Bot,
		Content:   m.Content,
	}, true
}
