package main

import (
	v "github.com/keshon/speakbot/internal/version"

	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "speakbot-cli",
		Short:         "Operator tools for " + v.AppName,
		Version:       v.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(checkCmd(), speakCmd())
	return root
}
