package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/apidrift/internal/config"
	"github.com/felixgeelhaar/apidrift/internal/errors"
	"github.com/felixgeelhaar/apidrift/internal/exitcode"
)

var rootCmd = &cobra.Command{
	Use:   "apidrift",
	Short: "Observe how live API traffic drifts from its OpenAPI contract",
	Long: `apidrift compares captured request/response samples with an OpenAPI 3
contract and reports what the traffic shows: undocumented fields, fields the
contract requires but traffic omits, type mismatches, and undocumented status
codes.

With --track, each run is stored per service and environment so later runs
report what appeared, disappeared, or shifted since the last one.

Reports go to stdout. Logs and human-readable context go to stderr.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupCommand,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { teardownCommand() },
}

// Execute runs the root command
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// interrupt by the caller.
func ExecuteContext(ctx context.Context) error {
	defer teardownCommand()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.Long += "\n\n" + exitcode.HelpText()

	rootCmd.PersistentFlags().String("config", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json (overrides config)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable styled terminal output")

	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return errors.Wrap(errors.ErrCodeUsageInvalidFlag, "invalid flag", err).
			WithSuggestion("Run '" + c.CommandPath() + " --help' for usage")
	})
}

// exactArgs is cobra.ExactArgs with a usage error code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return errors.Wrap(errors.ErrCodeUsageArgs, "wrong number of arguments", err).
				WithSuggestion("Usage: " + cmd.UseLine())
		}
		return nil
	}
}
