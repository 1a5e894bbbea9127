package cmd

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/felixgeelhaar/apidrift/internal/config"
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/errors"
	"github.com/felixgeelhaar/apidrift/internal/ids"
	"github.com/felixgeelhaar/apidrift/internal/log"
	"github.com/felixgeelhaar/apidrift/internal/metrics"
	"github.com/felixgeelhaar/apidrift/internal/openapi"
	"github.com/felixgeelhaar/apidrift/internal/present"
	"github.com/felixgeelhaar/apidrift/internal/report"
	"github.com/felixgeelhaar/apidrift/internal/storage"
	"github.com/felixgeelhaar/apidrift/internal/telemetry"
	"github.com/felixgeelhaar/apidrift/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check <spec-file> <traffic-file>",
	Short: "Compare captured traffic with an OpenAPI contract",
	Long: `Compare a JSON array of captured traffic samples with an OpenAPI 3 contract
and print a drift report.

By default only findings of medium severity or higher, seen in at least 5
samples and at least 10% of them, are reported. Use --no-filter to see
everything, or tune the thresholds in the config file.

Examples:
  # Single run, pretty JSON on stdout
  apidrift check openapi.yaml traffic.json

  # Record the run and compare it with earlier runs of the same service
  apidrift check openapi.yaml traffic.json --track \
    --service-name users --environment production

  # Only the strongest signals, grouped by endpoint, as YAML
  apidrift check openapi.yaml traffic.json --compact --group-by endpoint --format yaml

  # Fail a CI job when anything is reported
  apidrift check openapi.yaml traffic.json --format sarif --fail-on-findings > drift.sarif
`,
	Args: exactArgs(2),
	RunE: runCheck,
}

func init() {
	addCheckFlags(checkCmd.Flags())
	rootCmd.AddCommand(checkCmd)
}

func addCheckFlags(f *pflag.FlagSet) {
	f.Bool("no-filter", false, "report every finding regardless of severity, sample count or consistency")
	f.String("min-severity", "", "minimum severity to report: low, medium, high")
	f.Int("min-samples", 0, "minimum sample count to report")
	f.Float64("min-consistency", 0, "minimum consistency percentage to report")
	f.Bool("validate-spec", false, "validate the contract against the OpenAPI 3 schema before comparing")

	f.Bool("track", false, "store this run and compare it with earlier runs")
	f.String("service-name", "", "service the traffic belongs to (required with --track)")
	f.String("environment", "", "environment the traffic was captured in (required with --track)")
	f.String("storage-dir", "", "directory for stored runs (default from config)")
	f.Int("lookback", 0, "number of recent runs used for trends (default from config)")

	f.String("format", "", "output format: json, json-pretty, ndjson, yaml, sarif")
	f.Bool("compact", false, "show only high severity findings backed by at least 100 samples")
	f.String("group-by", "", "group findings by endpoint, field, status or none")
	f.Bool("fail-on-findings", false, "exit with code 4 when the report contains findings")
	f.String("metrics-file", "", "write Prometheus metrics for this run to a textfile")
}

// checkOptions is everything a check needs once flags and config are
// merged.
type checkOptions struct {
	analysisInput

	Track       bool
	ServiceName string
	Environment string
	Storage     config.StorageConfig
	Lookback    int

	Format  present.Format
	Density present.Density
	GroupBy present.GroupBy
	NoColor bool

	FailOnFindings bool
	MetricsFile    string

	IDs   ids.Generator
	Clock ids.Clock
}

func runCheck(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}

	opts, err := resolveCheckOptions(cmd.Flags(), cc.Config, args)
	if err != nil {
		return err
	}

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), "check")
	defer span.End()

	err = executeCheck(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), cc.Logger)
	telemetry.RecordError(span, err)
	return err
}

// resolveCheckOptions layers explicitly set flags over the config.
func resolveCheckOptions(flags *pflag.FlagSet, cfg *config.Config, args []string) (checkOptions, error) {
	opts := checkOptions{
		analysisInput: analysisInput{
			SpecPath:    args[0],
			TrafficPath: args[1],
		},
		Storage:  cfg.Storage,
		Lookback: cfg.History.Lookback,
		NoColor:  cfg.Output.NoColor,
	}

	var err error
	if opts.NoFilter, err = flags.GetBool("no-filter"); err != nil {
		return opts, err
	}
	if opts.ValidateSpec, err = flags.GetBool("validate-spec"); err != nil {
		return opts, err
	}
	if opts.Track, err = flags.GetBool("track"); err != nil {
		return opts, err
	}
	if opts.ServiceName, err = flags.GetString("service-name"); err != nil {
		return opts, err
	}
	if opts.Environment, err = flags.GetString("environment"); err != nil {
		return opts, err
	}
	if opts.FailOnFindings, err = flags.GetBool("fail-on-findings"); err != nil {
		return opts, err
	}

	minSeverity := stringFlag(flags, "min-severity", cfg.Filter.MinSeverity)
	severity, err := drift.ParseSeverity(minSeverity)
	if err != nil {
		return opts, errors.NewInvalidFlagError("min-severity", minSeverity, []string{"low", "medium", "high"})
	}
	opts.Criteria = report.Criteria{
		MinSeverity:    severity,
		MinSampleCount: cfg.Filter.MinSampleCount,
		MinConsistency: cfg.Filter.MinConsistency,
	}
	if flags.Changed("min-samples") {
		opts.Criteria.MinSampleCount, _ = flags.GetInt("min-samples")
	}
	if flags.Changed("min-consistency") {
		opts.Criteria.MinConsistency, _ = flags.GetFloat64("min-consistency")
	}

	opts.Storage.Dir = stringFlag(flags, "storage-dir", opts.Storage.Dir)
	if flags.Changed("lookback") {
		opts.Lookback, _ = flags.GetInt("lookback")
	}
	opts.MetricsFile = stringFlag(flags, "metrics-file", cfg.Metrics.Textfile)

	format := stringFlag(flags, "format", cfg.Output.Format)
	if format != "" && !slices.Contains(present.ReportFormats, format) {
		return opts, errors.NewInvalidFlagError("format", format, present.ReportFormats)
	}
	if opts.Format, err = present.ParseFormat(format); err != nil {
		return opts, err
	}

	groupBy := stringFlag(flags, "group-by", cfg.Output.GroupBy)
	if opts.GroupBy, err = present.ParseGroupBy(groupBy); err != nil {
		return opts, errors.NewInvalidFlagError("group-by", groupBy, present.GroupByValues)
	}

	density := cfg.Output.Density
	if compact, _ := flags.GetBool("compact"); compact {
		density = string(present.DensityCompact)
	}
	if opts.Density, err = present.ParseDensity(density); err != nil {
		return opts, err
	}

	if opts.Track {
		if opts.ServiceName == "" {
			return opts, errors.NewMissingFlagError("service-name", "Runs are tracked per service: pass --service-name with --track")
		}
		if opts.Environment == "" {
			return opts, errors.NewMissingFlagError("environment", "Runs are tracked per environment: pass --environment with --track")
		}
	}

	return opts, nil
}

func stringFlag(flags *pflag.FlagSet, name, fallback string) string {
	if !flags.Changed(name) {
		return fallback
	}
	v, _ := flags.GetString(name)
	return v
}

// executeCheck runs the pipeline, renders the result and records metrics.
func executeCheck(ctx context.Context, opts checkOptions, stdout, stderr io.Writer, logger *log.Logger) (err error) {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	start := time.Now()
	reg, m := metrics.NewRegistry()

	mode := metrics.ModeSingle
	if opts.Track {
		mode = metrics.ModeTracked
	}

	findings := 0
	defer func() {
		outcome := metrics.OutcomeClean
		switch {
		case err != nil && findings == 0:
			outcome = metrics.OutcomeError
		case findings > 0:
			outcome = metrics.OutcomeDrift
		}
		m.RecordRun(mode, outcome, time.Since(start))

		if opts.MetricsFile != "" {
			if werr := metrics.WriteTextfile(reg, opts.MetricsFile); werr != nil {
				logger.WarnContext(ctx, "failed to write metrics textfile", "path", opts.MetricsFile, "error", werr)
			}
		}
	}()

	rep, err := analyze(ctx, opts.analysisInput, m, logger)
	if err != nil {
		m.RecordError(err, "analyze")
		return err
	}
	m.RecordReport(rep)
	findings = len(rep.Findings)

	renderer := &present.Renderer{
		Stdout:  stdout,
		Stderr:  stderr,
		Format:  opts.Format,
		Density: opts.Density,
		GroupBy: opts.GroupBy,
		NoColor: opts.NoColor,
		SARIF: drift.SARIFOptions{
			ToolVersion: version.GetInfo().Version,
			ContractURI: opts.SpecPath,
		},
	}

	if !opts.Track {
		_, err = telemetry.Stage(ctx, telemetry.StageRender, m.ObserveStage,
			func(context.Context) (struct{}, error) {
				return struct{}{}, renderer.RenderReport(rep)
			})
	} else {
		var v2 *report.ReportV2
		v2, err = trackRun(ctx, opts, rep, m, logger)
		if err != nil {
			m.RecordError(err, "history")
			return err
		}
		_, err = telemetry.Stage(ctx, telemetry.StageRender, m.ObserveStage,
			func(context.Context) (struct{}, error) {
				return struct{}{}, renderer.RenderLongitudinal(v2)
			})
	}
	if err != nil {
		m.RecordError(err, "render")
		return err
	}

	logger.InfoContext(ctx, "check complete",
		"mode", mode,
		"endpoints", rep.EndpointsAnalyzed,
		"findings", findings,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if opts.FailOnFindings && findings > 0 {
		return errors.NewDriftDetectedError(findings)
	}
	return nil
}

// trackRun compares rep with the stored history of the service and
// environment, then stores the result.
func trackRun(ctx context.Context, opts checkOptions, rep *drift.Report, m *metrics.Metrics, logger *log.Logger) (*report.ReportV2, error) {
	return telemetry.Stage(ctx, telemetry.StageHistory, m.ObserveStage,
		func(ctx context.Context) (*report.ReportV2, error) {
			hash, err := openapi.HashFile(opts.SpecPath)
			if err != nil {
				return nil, errors.NewSpecInvalidError(opts.SpecPath, err)
			}

			store, err := storage.NewFileStorage(opts.Storage.Dir, storage.Options{
				MaxIndexEntries: opts.Storage.MaxIndexEntries,
				CacheSize:       opts.Storage.CacheSize,
			}, logger)
			if err != nil {
				return nil, err
			}

			v2, err := report.BuildLongitudinal(ctx, rep, report.Options{
				ServiceName: opts.ServiceName,
				Environment: opts.Environment,
				SpecHash:    hash,
				ToolVersion: version.GetInfo().Version,
				Lookback:    opts.Lookback,
				History:     store,
				IDs:         opts.IDs,
				Clock:       opts.Clock,
				Logger:      logger,
			})
			if err != nil {
				return nil, err
			}

			if err := store.SaveReport(ctx, v2); err != nil {
				return nil, err
			}

			m.RecordChanges(v2.Changes)
			if v2.Continuity != nil {
				m.ComparedRuns.Set(float64(v2.Continuity.ComparedRuns))
			}
			logger.DebugContext(ctx, "run stored",
				log.KeyRunID, v2.Run.RunID,
				"changes", len(v2.Changes),
				"storage_dir", store.Dir(),
			)
			return v2, nil
		})
}
