// cmd/discord/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/keshon/speakbot/internal/audio"
	"github.com/keshon/speakbot/internal/command"
	"github.com/keshon/speakbot/internal/config"
	"github.com/keshon/speakbot/internal/discord"
	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/metrics"
	"github.com/keshon/speakbot/internal/pipeline"
	"github.com/keshon/speakbot/internal/player"
	"github.com/keshon/speakbot/internal/tts"
	v "github.com/keshon/speakbot/internal/version"
	"github.com/keshon/speakbot/internal/voice"

	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERR]", err)
		os.Exit(1)
	}
}

func run() error {
	dotenv := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Init(cfg.LogLevel, cfg.LogPretty)
	logger.Info().
		Str("version", v.String()).
		Bool("dotenv", dotenv).
		Interface("config", cfg.Redacted()).
		Msgf("Starting %s bot", v.AppName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dg, err := discord.NewSession(cfg.DiscordToken)
	if err != nil {
		return err
	}

	transcoder := &audio.FFmpegOpus{Path: cfg.FFmpegPath, Bitrate: cfg.OpusBitrate}
	pl := player.New(transcoder, logger)
	sessions := voice.NewManager(discord.NewJoiner(dg, logger), pl, cfg.VoiceConnectTimeout, logger)
	defer sessions.Teardown()

	fetcher := tts.New(cfg.TTS, &http.Client{}, logger)

	p := pipeline.New(pipeline.Config{
		TargetUserID:       cfg.TargetUserID,
		TargetChannelID:    cfg.TargetChannelID,
		PlaybackTimeout:    cfg.PlaybackTimeout,
		LeaveAfterPlayback: cfg.LeaveAfterPlayback,
	}, pipeline.Deps{
		Platform: discord.NewPlatform(dg),
		Sessions: sessions,
		Fetcher:  fetcher,
		Player:   pl,
		Commands: command.NewRegistry("", sessions, logger),
	}, logger)

	bot := discord.New(dg, p, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.MetricsAddr, logger)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("discord bot error: %w", err)
	}

	logger.Info().Msg("Discord bot exited cleanly")
	return nil
}
