package status

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maxgio92/wallprof/internal/settings"
	"github.com/maxgio92/wallprof/pkg/cmd/common"
	"github.com/maxgio92/wallprof/pkg/cmd/options"
)

func NewCommand(_ *options.CommonOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "status",
		Short:             fmt.Sprintf("Check the %s sampler status", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Run:               run,
	}

	return cmd
}

func run(_ *cobra.Command, _ []string) {
	if common.IsDaemonRunning() {
		pidData, _ := os.ReadFile(settings.PidFile)
		fmt.Printf("%s is running (PID %s)\n", settings.CmdName, pidData)
	} else {
		fmt.Printf("%s is not running\n", settings.CmdName)
	}
}
