package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/errors"
	"github.com/felixgeelhaar/apidrift/internal/log"
	"github.com/felixgeelhaar/apidrift/internal/present"
	"github.com/felixgeelhaar/apidrift/internal/report"
	"github.com/felixgeelhaar/apidrift/internal/storage"
	"github.com/felixgeelhaar/apidrift/internal/telemetry"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect runs recorded with check --track",
	Long: `Inspect runs recorded with 'apidrift check --track'.

Examples:
  # Most recent runs of a service
  apidrift history list --service-name users --environment production

  # One stored report
  apidrift history show 6f1c2a9e-3b7d-4c55-9a0e-8f4d2b1c7e90

  # Frequency of the latest findings across recent runs
  apidrift history trend --service-name users --environment production
`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a stored report",
	Args:  exactArgs(1),
	RunE:  runHistoryShow,
}

var historyTrendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Show how often the latest findings appeared in recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryTrend,
}

func init() {
	for _, c := range []*cobra.Command{historyListCmd, historyShowCmd, historyTrendCmd} {
		c.Flags().String("storage-dir", "", "directory for stored runs (default from config)")
	}
	for _, c := range []*cobra.Command{historyListCmd, historyTrendCmd} {
		c.Flags().String("service-name", "", "service name (required)")
		c.Flags().String("environment", "", "environment (required)")
		c.Flags().String("format", "text", "output format: text, json, yaml")
		_ = c.MarkFlagRequired("service-name")
		_ = c.MarkFlagRequired("environment")
	}
	historyListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	historyTrendCmd.Flags().Int("limit", 0, "number of runs to chart (default: history lookback from config)")
	historyShowCmd.Flags().String("format", "", "output format: json, json-pretty, ndjson, yaml, sarif")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyTrendCmd)
	rootCmd.AddCommand(historyCmd)
}

// openStorage opens the run store named by --storage-dir or the config.
func openStorage(cmd *cobra.Command, cc *CommandContext) (*storage.FileStorage, error) {
	cfg := cc.Config.Storage
	cfg.Dir = stringFlag(cmd.Flags(), "storage-dir", cfg.Dir)
	return storage.NewFileStorage(cfg.Dir, storage.Options{
		MaxIndexEntries: cfg.MaxIndexEntries,
		CacheSize:       cfg.CacheSize,
	}, cc.Logger)
}

func listFormat(cmd *cobra.Command) (present.Format, error) {
	format, _ := cmd.Flags().GetString("format")
	switch f := present.Format(format); f {
	case present.FormatText, present.FormatJSON, present.FormatJSONPretty, present.FormatYAML:
		return f, nil
	}
	return "", errors.NewInvalidFlagError("format", format, []string{"text", "json", "json-pretty", "yaml"})
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	format, err := listFormat(cmd)
	if err != nil {
		return err
	}
	store, err := openStorage(cmd, cc)
	if err != nil {
		return err
	}

	service, _ := cmd.Flags().GetString("service-name")
	env, _ := cmd.Flags().GetString("environment")
	limit, _ := cmd.Flags().GetInt("limit")

	runs, err := listRuns(cmd.Context(), store, service, env, limit)
	if err != nil {
		return err
	}
	return writeValue(cmd.OutOrStdout(), format, runs, present.RunList(runs))
}

func listRuns(ctx context.Context, h report.History, service, env string, limit int) ([]report.RunRef, error) {
	if limit <= 0 {
		limit = storage.DefaultMaxIndexEntries
	}
	runs, err := h.ListRecentRuns(ctx, service, env, limit)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []report.RunRef{}
	}
	return runs, nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	if formatFlag == "" {
		formatFlag = cc.Config.Output.Format
	}
	format, err := present.ParseFormat(formatFlag)
	if err != nil || format == present.FormatText {
		return errors.NewInvalidFlagError("format", formatFlag, present.ReportFormats)
	}

	store, err := openStorage(cmd, cc)
	if err != nil {
		return err
	}

	v2, err := store.LoadReport(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if v2 == nil {
		return errors.NewRunNotFoundError(args[0])
	}

	renderer := &present.Renderer{
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Format:  format,
		NoColor: cc.Config.Output.NoColor,
		SARIF:   drift.SARIFOptions{ToolVersion: v2.Run.ToolVersion},
	}
	return renderer.RenderLongitudinal(v2)
}

func runHistoryTrend(cmd *cobra.Command, args []string) error {
	cc, err := commandContext(cmd)
	if err != nil {
		return err
	}
	format, err := listFormat(cmd)
	if err != nil {
		return err
	}
	store, err := openStorage(cmd, cc)
	if err != nil {
		return err
	}

	service, _ := cmd.Flags().GetString("service-name")
	env, _ := cmd.Flags().GetString("environment")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cc.Config.History.Lookback
	}

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), "history.trend")
	defer span.End()

	lines, err := trendLines(ctx, store, service, env, limit, cc.Logger)
	telemetry.RecordError(span, err)
	if err != nil {
		return err
	}
	return writeValue(cmd.OutOrStdout(), format, lines, present.TrendTable(lines))
}

// trendLines charts the findings of the newest readable run over up to
// limit recent runs.
func trendLines(ctx context.Context, h report.History, service, env string, limit int, logger *log.Logger) ([]present.TrendLine, error) {
	refs, err := h.ListRecentRuns(ctx, service, env, limit)
	if err != nil {
		return nil, err
	}

	reports := make([]drift.Report, 0, len(refs))
	for _, ref := range refs {
		v2, err := h.LoadReport(ctx, ref.RunID)
		if err != nil {
			return nil, err
		}
		if v2 == nil {
			logger.DebugContext(ctx, "skipping unreadable run", log.KeyRunID, ref.RunID)
			continue
		}
		reports = append(reports, v2.Report)
	}

	lines := present.TrendLines(reports)
	if lines == nil {
		lines = []present.TrendLine{}
	}
	return lines, nil
}

// writeValue writes data in a structured format, or text as plain text.
func writeValue(w io.Writer, format present.Format, data any, text fmt.Stringer) error {
	if format == present.FormatText {
		data = text
	}
	f, err := present.NewFormatter(format, &present.FormatterOptions{Writer: w})
	if err != nil {
		return err
	}
	return f.Format(data)
}
