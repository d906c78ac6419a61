// cmd/cli/main.go
package main

import (
	"os"

	"github.com/keshon/speakbot/internal/config"
)

func main() {
	config.LoadDotEnv()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
