package command

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/speakbot/internal/logging"
	"github.com/keshon/speakbot/internal/metrics"
	"github.com/keshon/speakbot/pkg/cmd"

	"github.com/rs/zerolog"
)

// WithLogging logs every run with its duration and error.
func WithLogging(logger zerolog.Logger) cmd.Middleware {
	return func(next cmd.Command) cmd.Command {
		return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := next.Run(ctx, inv)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt.Str("command", next.Name()).Strs("args", inv.Args).Dur("took", time.Since(start)).Msg("Command executed")
			return err
		})
	}
}

// WithMetrics counts runs per command.
func WithMetrics() cmd.Middleware {
	return func(next cmd.Command) cmd.Command {
		return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) error {
			metrics.RecordCommand(next.Name())
			return next.Run(ctx, inv)
		})
	}
}

// WithRecover turns a panic inside a command into an error.
func WithRecover() cmd.Middleware {
	return func(next cmd.Command) cmd.Command {
		return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("command %s panicked: %v", next.Name(), r)
				}
			}()
			return next.Run(ctx, inv)
		})
	}
}

// NewRegistry returns the bot's text commands behind the default middleware.
func NewRegistry(prefix string, sessions Sessions, logger zerolog.Logger) *cmd.Registry {
	log := logging.Component(logger, "commands")
	r := cmd.NewRegistry(prefix)
	r.Register(cmd.Apply(&LeaveCommand{Sessions: sessions}, WithLogging(log), WithMetrics(), WithRecover()))
	return r
}
