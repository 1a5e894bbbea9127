package report

import (
	"context"
	"fmt"
	"slices"

	"github.com/felixgeelhaar/apidrift/internal/continuity"
	"github.com/felixgeelhaar/apidrift/internal/diff"
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/ids"
	"github.com/felixgeelhaar/apidrift/internal/log"
	"github.com/felixgeelhaar/apidrift/internal/trend"
)

// DefaultLookback is the number of recent runs consulted for trends.
const DefaultLookback = 5

// Options configure BuildLongitudinal.
type Options struct {
	ServiceName string
	Environment string
	SpecHash    string
	ToolVersion string

	// Lookback bounds the recent runs loaded for trends. Zero means
	// DefaultLookback.
	Lookback int

	// History may be nil, in which case the run has no past.
	History History

	IDs    ids.Generator
	Clock  ids.Clock
	Logger *log.Logger
}

func (o *Options) defaults() {
	if o.Lookback <= 0 {
		o.Lookback = DefaultLookback
	}
	if o.IDs == nil {
		o.IDs = ids.UUIDGenerator{}
	}
	if o.Clock == nil {
		o.Clock = ids.SystemClock{}
	}
	if o.Logger == nil {
		o.Logger = log.DefaultLogger()
	}
}

// BuildLongitudinal wraps v1 with run metadata and compares it against the
// stored history of the same service and environment. v1 is not modified.
func BuildLongitudinal(ctx context.Context, v1 *drift.Report, opts Options) (*ReportV2, error) {
	if v1 == nil {
		return nil, fmt.Errorf("longitudinal report: nil single-run report")
	}
	opts.defaults()
	logger := opts.Logger.ForRun(opts.ServiceName, opts.Environment)

	current := *v1
	current.Findings = slices.Clone(v1.Findings)
	if current.Findings == nil {
		current.Findings = []drift.Finding{}
	}

	out := &ReportV2{
		SchemaVersion: SchemaVersion,
		Report:        current,
		Run: RunMetadata{
			RunID:       opts.IDs.NewID(),
			ExecutedAt:  opts.Clock.Now(),
			ServiceName: opts.ServiceName,
			Environment: opts.Environment,
			SpecHash:    opts.SpecHash,
			ToolVersion: opts.ToolVersion,
		},
		Changes: []diff.ChangeEvent{},
		Trends:  []trend.Summary{},
	}

	if opts.History == nil {
		out.Trends = trend.BuildTrends(current.Findings, nil)
		return out, nil
	}

	seen := make(map[string]bool)

	prevRef, err := opts.History.PreviousRun(ctx, opts.ServiceName, opts.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to look up previous run: %w", err)
	}

	var prev *ReportV2
	if prevRef != nil && prevRef.RunID != out.Run.RunID {
		out.PreviousRun = prevRef
		prev, err = opts.History.LoadReport(ctx, prevRef.RunID)
		if err != nil {
			return nil, fmt.Errorf("failed to load previous run %s: %w", prevRef.RunID, err)
		}
		if prev == nil {
			logger.DebugContext(ctx, "previous run not loadable", log.KeyRunID, prevRef.RunID)
		} else {
			seen[prev.Run.RunID] = true
		}
	} else {
		logger.DebugContext(ctx, "no previous run")
	}

	if prev != nil {
		if prev.Run.SpecHash != opts.SpecHash {
			out.SpecChange = &SpecChange{
				PreviousHash: prev.Run.SpecHash,
				CurrentHash:  opts.SpecHash,
				Note:         SpecChangeNote,
			}
		}
		if changes := diff.DetectChanges(&prev.Report, &current, opts.IDs); changes != nil {
			out.Changes = changes
		}
	}

	refs, err := opts.History.ListRecentRuns(ctx, opts.ServiceName, opts.Environment, opts.Lookback)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent runs: %w", err)
	}

	history := make([]drift.Report, 0, len(refs))
	for _, ref := range refs {
		if ref.RunID == out.Run.RunID {
			continue
		}
		past, err := opts.History.LoadReport(ctx, ref.RunID)
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", ref.RunID, err)
		}
		if past == nil {
			logger.DebugContext(ctx, "skipping unreadable run", log.KeyRunID, ref.RunID)
			continue
		}
		history = append(history, past.Report)
		seen[past.Run.RunID] = true
	}

	out.Trends = trend.BuildTrends(current.Findings, history)
	out.Continuity = continuity.Build(len(seen), out.Changes, len(current.Findings))

	logger.DebugContext(ctx, "longitudinal report built",
		log.KeyRunID, out.Run.RunID,
		"compared_runs", len(seen),
		"history_reports", len(history),
		"changes", len(out.Changes),
	)
	return out, nil
}
