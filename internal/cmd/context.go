package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/apidrift/internal/config"
	"github.com/felixgeelhaar/apidrift/internal/log"
)

// CommandContext holds the resolved configuration and global flags of one
// invocation.
type CommandContext struct {
	Config     *config.Config
	ConfigPath string
	Verbose    bool
	Logger     *log.Logger
}

type commandContextKey struct{}

// NewCommandContext loads the config file named by --config and applies
// the global flag overrides. The file is only required when --config was
// given explicitly.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return nil, err
	}
	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path, flags.Changed("config"))
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if noColor {
		cfg.Output.NoColor = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &CommandContext{
		Config:     cfg,
		ConfigPath: path,
		Verbose:    verbose,
	}, nil
}

func withCommandContext(ctx context.Context, cc *CommandContext) context.Context {
	return context.WithValue(ctx, commandContextKey{}, cc)
}

// commandContext returns the context installed by the root pre-run hook.
func commandContext(cmd *cobra.Command) (*CommandContext, error) {
	if ctx := cmd.Context(); ctx != nil {
		if cc, ok := ctx.Value(commandContextKey{}).(*CommandContext); ok {
			return cc, nil
		}
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to create command context: %w", err)
	}
	cc.Logger = log.DefaultLogger()
	return cc, nil
}
