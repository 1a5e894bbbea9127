package cmd

import (
	"context"

	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/log"
	"github.com/felixgeelhaar/apidrift/internal/metrics"
	"github.com/felixgeelhaar/apidrift/internal/observe"
	"github.com/felixgeelhaar/apidrift/internal/openapi"
	"github.com/felixgeelhaar/apidrift/internal/report"
	"github.com/felixgeelhaar/apidrift/internal/telemetry"
	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

// analysisInput names the two files a check compares and how the findings
// are filtered.
type analysisInput struct {
	SpecPath     string
	TrafficPath  string
	ValidateSpec bool

	// NoFilter reports every finding. Otherwise Criteria apply.
	NoFilter bool
	Criteria report.Criteria
}

// analyze runs the single-run pipeline: read traffic, load the contract,
// observe each endpoint, detect drift and build the report.
func analyze(ctx context.Context, in analysisInput, m *metrics.Metrics, logger *log.Logger) (*drift.Report, error) {
	samples, err := telemetry.Stage(ctx, telemetry.StageReadTraffic, m.ObserveStage,
		func(ctx context.Context) ([]traffic.Sample, error) {
			return traffic.ReadFile(in.TrafficPath)
		})
	if err != nil {
		return nil, err
	}
	m.SamplesRead.Add(float64(len(samples)))
	logger.DebugContext(ctx, "traffic read", log.KeyPath, in.TrafficPath, "samples", len(samples))

	index, err := telemetry.Stage(ctx, telemetry.StageLoadSpec, m.ObserveStage,
		func(ctx context.Context) (map[string]openapi.Endpoint, error) {
			doc, err := openapi.LoadFile(ctx, in.SpecPath, openapi.LoadOptions{Validate: in.ValidateSpec})
			if err != nil {
				return nil, err
			}
			return openapi.Index(openapi.Endpoints(doc)), nil
		})
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "contract loaded", log.KeyPath, in.SpecPath, "endpoints", len(index))

	window, err := traffic.BuildWindow(samples)
	if err != nil {
		return nil, err
	}
	groups := traffic.GroupByEndpoint(samples)

	observations, err := telemetry.Stage(ctx, telemetry.StageObserve, m.ObserveStage,
		func(ctx context.Context) ([]observe.EndpointObservation, error) {
			out := make([]observe.EndpointObservation, 0, len(groups))
			for _, g := range groups {
				obs, err := observe.ObserveGroup(g)
				if err != nil {
					return nil, err
				}
				out = append(out, obs)
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}

	findings, err := telemetry.Stage(ctx, telemetry.StageDetect, m.ObserveStage,
		func(ctx context.Context) ([]drift.Finding, error) {
			var all []drift.Finding
			for _, obs := range observations {
				ep, ok := index[obs.Key()]
				if !ok {
					logger.ForEndpoint(obs.Key()).DebugContext(ctx, "endpoint absent from contract")
					continue
				}
				found := drift.Detect(&ep, obs)
				logger.ForEndpoint(obs.Key()).DebugContext(ctx, "endpoint compared", "findings", len(found))
				all = append(all, found...)
			}
			return all, nil
		})
	if err != nil {
		return nil, err
	}

	return telemetry.Stage(ctx, telemetry.StageReport, m.ObserveStage,
		func(ctx context.Context) (*drift.Report, error) {
			switch {
			case len(findings) == 0:
				return report.EmptyReport(window, len(groups)), nil
			case in.NoFilter:
				return report.BuildDriftReport(findings, window, len(groups), false), nil
			default:
				return report.BuildFilteredReport(findings, window, len(groups), in.Criteria), nil
			}
		})
}
