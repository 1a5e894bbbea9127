package cmd

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/apidrift/internal/config"
	"github.com/felixgeelhaar/apidrift/internal/log"
	"github.com/felixgeelhaar/apidrift/internal/telemetry"
	"github.com/felixgeelhaar/apidrift/internal/version"
)

var (
	cleanupMu sync.Mutex
	cleanup   func()
)

// setupCommand resolves configuration, then configures logging and
// optional tracing before any subcommand runs.
func setupCommand(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		if cmd.Annotations["config"] != "skip" {
			return err
		}
		cc = &CommandContext{Config: config.Default(), ConfigPath: configPath(cmd)}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cc.Logger = setupLogging(cc.Config, cc.Verbose)
	telemetryCleanup := setupTelemetry(ctx, cc.Config, cc.Logger)

	cleanupMu.Lock()
	cleanup = telemetryCleanup
	cleanupMu.Unlock()

	cmd.SetContext(withCommandContext(ctx, cc))
	return nil
}

// teardownCommand flushes telemetry. It is safe to call more than once.
func teardownCommand() {
	cleanupMu.Lock()
	fn := cleanup
	cleanup = nil
	cleanupMu.Unlock()

	if fn != nil {
		fn()
	}
}

// setupLogging installs a stderr logger so stdout carries only reports.
func setupLogging(cfg *config.Config, verbose bool) *log.Logger {
	logCfg := log.FromSettings(cfg.Logging.Level, cfg.Logging.Format, verbose)
	logCfg.ServiceVersion = version.GetInfo().Version

	logger := log.New(logCfg)

	log.SetDefaultLogger(logger)
	return logger
}

func setupTelemetry(ctx context.Context, cfg *config.Config, logger *log.Logger) func() {
	if !cfg.Telemetry.Enabled {
		return func() {}
	}

	info := version.GetInfo()
	telemCfg := telemetry.Config{
		ServiceName:    "apidrift",
		ServiceVersion: info.Version,
		Enabled:        true,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}

	shutdown, err := telemetry.InitProvider(ctx, telemCfg)
	if err != nil {
		logger.Warn("Failed to initialize telemetry", "error", err)
		return func() {}
	}

	logger.Debug("Telemetry enabled",
		"endpoint", telemCfg.Endpoint,
		"sample_rate", telemCfg.SampleRate,
	)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to flush telemetry", "error", err)
		}
	}
}
