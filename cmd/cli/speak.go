package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/keshon/speakbot/internal/config"
	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/tts"

	"github.com/spf13/cobra"
)

func speakCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "speak [text]",
		Short: "Synthesize text with ElevenLabs into an MP3 file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadTTS()
			if err != nil {
				return err
			}
			n, err := runSpeak(cmd.Context(), *cfg, strings.Join(args, " "), out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "speech.mp3", "output file")
	return cmd
}

func runSpeak(ctx context.Context, cfg config.TTS, text, out string) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.InitWriter(os.Stderr, "warn", true)
	fetcher := tts.New(cfg, &http.Client{}, logger)

	stream, err := fetcher.FetchSpeechStream(ctx, text)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	f, err := os.Create(out)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}

	n, err := io.Copy(f, stream)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return n, fmt.Errorf("write audio: %w", err)
	}
	return n, nil
}
