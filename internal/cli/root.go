package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "breakwater",
	Short:   "A fault-injection mock API and resilience load-test harness",
	Version: version,
	Long: `Breakwater drives deterministic fault scenarios against a mock API and
measures how capacity-limited operations behave under concurrent load.

The serve command runs the mock API: each endpoint plays back a scripted
outcome sequence (errors, delays, timeouts) per caller. The run command
fires a staggered burst of requests at a target and reports which calls
a capacity limit rejected, with a diagnosis of the rejection pattern.`,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(runCmd)
}

// newLogger builds the process logger. Verbose runs get the
// development encoder, everything else structured production JSON.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
