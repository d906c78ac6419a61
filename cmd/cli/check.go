package main

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"github.com/keshon/speakbot/internal/config"
	v "github.com/keshon/speakbot/internal/version"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and external tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), exec.LookPath)
		},
	}
}

// runCheck prints a report and fails when the bot could not start.
func runCheck(w io.Writer, lookPath func(string) (string, error)) error {
	fmt.Fprintf(w, "%s check\n", v.AppName)
	fmt.Fprintf(w, "  Version:  %s\n", v.String())
	fmt.Fprintf(w, "  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(w)

	ok := true

	cfg, err := config.Load()
	if err != nil {
		ok = false
		fmt.Fprintf(w, "  Config:   FAILED\n    %v\n", err)
	} else {
		fmt.Fprintln(w, "  Config:   OK")
		fmt.Fprintf(w, "    TTS model:      %s\n", cfg.TTS.ModelID)
		fmt.Fprintf(w, "    Voice timeout:  %s\n", cfg.VoiceConnectTimeout)
		fmt.Fprintf(w, "    Play timeout:   %s\n", cfg.PlaybackTimeout)
	}

	ffmpeg := "ffmpeg"
	if cfg != nil && cfg.FFmpegPath != "" {
		ffmpeg = cfg.FFmpegPath
	}
	if path, err := lookPath(ffmpeg); err != nil {
		ok = false
		fmt.Fprintf(w, "  ffmpeg:   NOT FOUND (%s)\n", ffmpeg)
	} else {
		fmt.Fprintf(w, "  ffmpeg:   %s\n", path)
	}

	if !ok {
		return fmt.Errorf("check failed")
	}
	return nil
}
