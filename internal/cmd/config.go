package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/apidrift/internal/config"
	"github.com/felixgeelhaar/apidrift/internal/present"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit apidrift configuration",
	Long: `Manage the apidrift configuration file (default ./.apidrift.yaml).

Every key can also be set through an APIDRIFT_* environment variable, which
takes precedence over the file. Flags take precedence over both.

Examples:
  # Show the effective configuration
  apidrift config view

  # Write the defaults to ./.apidrift.yaml
  apidrift config init

  # Read or change one key
  apidrift config get history.lookback
  apidrift config set storage.dir /var/lib/apidrift
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the effective configuration",
	Long:  `Display the configuration after defaults, the config file, environment variables and global flags are merged.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long:  `Print the effective value of a dotted key such as history.lookback.`,
	Args:  exactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the config file",
	Long:  `Set a dotted key such as history.lookback in the config file. Environment overrides are not written.`,
	Args:  exactArgs(2),
	RunE:  runConfigSet,
}

// Editing commands must work on a file that no longer validates.
var skipConfigAnnotation = map[string]string{"config": "skip"}

func init() {
	configViewCmd.Flags().String("format", "yaml", "output format: yaml or json")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	for _, c := range []*cobra.Command{configPathCmd, configInitCmd, configSetCmd} {
		c.Annotations = skipConfigAnnotation
	}

	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	rootCmd.AddCommand(configCmd)
}

func configPath(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return config.DefaultPath
	}
	return path
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return writeValue(cmd.OutOrStdout(), present.FormatJSONPretty, cc.Config, nil)
	case "yaml", "":
		data, err := cc.Config.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q (expected yaml or json)", format)
	}
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	status := "not found, defaults apply"
	if _, err := os.Stat(abs); err == nil {
		status = "exists"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", abs, status)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	}
	if err := config.Default().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default configuration to %s\n", path)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	value, err := cc.Config.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	path := configPath(cmd)

	cfg, err := config.Read(path, false)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, value)
	return nil
}
