package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/wallprof/pkg/cmd/options"
)

func newTestOptions() *options.CommonOptions {
	logger := log.New(log.ConsoleWriter{Out: os.Stderr})

	return options.NewCommonOptions(
		options.WithContext(context.Background()),
		options.WithLogger(logger),
	)
}

func TestNewCommand(t *testing.T) {
	tests := []struct {
		name     string
		validate func(*testing.T, *cobra.Command)
	}{
		{
			name: "default command creation",
			validate: func(t *testing.T, cmd *cobra.Command) {
				require.Equal(t, "wallprof", cmd.Name())
				require.Contains(t, cmd.Short, "wall-clock thread sampling profiler")
				require.True(t, cmd.HasSubCommands())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand(newTestOptions())
			require.NotNil(t, cmd)

			if tt.validate != nil {
				tt.validate(t, cmd)
			}
		})
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := NewCommand(newTestOptions())

	flag := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	require.Equal(t, "string", flag.Value.Type())
	require.Equal(t, "info", flag.DefValue)
	require.Contains(t, flag.Usage, "log level")
}

func TestCommandSubcommands(t *testing.T) {
	cmd := NewCommand(newTestOptions())

	expectedSubcommands := []string{"start", "status", "stop", "wait"}
	actualSubcommands := make([]string, 0)

	for _, subCmd := range cmd.Commands() {
		actualSubcommands = append(actualSubcommands, subCmd.Name())
	}

	for _, expected := range expectedSubcommands {
		require.Contains(t, actualSubcommands, expected)
	}
}

func TestCommandHelp(t *testing.T) {
	cmd := NewCommand(newTestOptions())

	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	helpOutput := output.String()
	require.Contains(t, helpOutput, "wallprof")
	require.Contains(t, helpOutput, "Available Commands:")
	require.Contains(t, helpOutput, "start")
	require.Contains(t, helpOutput, "status")
	require.Contains(t, helpOutput, "stop")
	require.Contains(t, helpOutput, "wait")
}

func TestCommandInvalidFlag(t *testing.T) {
	cmd := NewCommand(newTestOptions())

	var output bytes.Buffer
	cmd.SetErr(&output)
	cmd.SetArgs([]string{"--invalid-flag"})

	err := cmd.Execute()
	require.Error(t, err)
	require.Contains(t, output.String(), "unknown flag")
}
