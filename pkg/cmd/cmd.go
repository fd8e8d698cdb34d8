package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/wallprof/internal/settings"
	"github.com/maxgio92/wallprof/pkg/cmd/options"
	"github.com/maxgio92/wallprof/pkg/cmd/start"
	"github.com/maxgio92/wallprof/pkg/cmd/status"
	"github.com/maxgio92/wallprof/pkg/cmd/stop"
	"github.com/maxgio92/wallprof/pkg/cmd/wait"
)

const logLevelInfo = "info"

func NewCommand(opts *options.CommonOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:               settings.CmdName,
		Short:             "wallprof is a wall-clock thread sampling profiler",
		Long:              `wallprof periodically interrupts the threads of a process with sampling signals to profile where wall-clock time is spent.`,
		DisableAutoGenTag: true,
	}
	cmd.AddCommand(start.NewCommand(opts))
	cmd.AddCommand(status.NewCommand(opts))
	cmd.AddCommand(stop.NewCommand(opts))
	cmd.AddCommand(wait.NewCommand(opts))
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", logLevelInfo, "Set the log level (trace, debug, info, warn, error, fatal, panic)")

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the root command.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(
		log.ConsoleWriter{Out: os.Stderr},
	).With().Timestamp().Logger()

	opts := options.NewCommonOptions(
		options.WithContext(ctx),
		options.WithLogger(logger),
	)

	if err := NewCommand(opts).Execute(); err != nil {
		os.Exit(1)
	}
}
