package report

import (
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

// BuildDriftReport sorts the findings into a report, filtering them with
// DefaultCriteria when applyDefaultFilter is set.
func BuildDriftReport(findings []drift.Finding, window traffic.Window, endpointsAnalyzed int, applyDefaultFilter bool) *drift.Report {
	if !applyDefaultFilter {
		return build(findings, window, endpointsAnalyzed, nil)
	}
	c := DefaultCriteria()
	return build(findings, window, endpointsAnalyzed, &c)
}

// BuildFilteredReport is BuildDriftReport with explicit thresholds.
func BuildFilteredReport(findings []drift.Finding, window traffic.Window, endpointsAnalyzed int, c Criteria) *drift.Report {
	return build(findings, window, endpointsAnalyzed, &c)
}

func build(findings []drift.Finding, window traffic.Window, endpointsAnalyzed int, c *Criteria) *drift.Report {
	r := &drift.Report{
		Window:            window,
		EndpointsAnalyzed: endpointsAnalyzed,
	}

	kept := findings
	if c != nil {
		kept = FilterFindings(findings, *c)
		r.Filtered = true
		r.FilterCriteria = c.Record()
	}
	r.Findings = SortFindings(kept)
	if r.Findings == nil {
		r.Findings = []drift.Finding{}
	}
	return r
}

// EmptyReport is the affirmative result of a run that observed traffic
// and found nothing reportable.
func EmptyReport(window traffic.Window, endpointsAnalyzed int) *drift.Report {
	return &drift.Report{
		Window:              window,
		EndpointsAnalyzed:   endpointsAnalyzed,
		Findings:            []drift.Finding{},
		Filtered:            true,
		FilterCriteria:      DefaultCriteria().Record(),
		ObservationComplete: true,
	}
}
