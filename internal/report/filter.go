// Package report assembles single-run and longitudinal drift reports.
package report

import (
	"cmp"
	"slices"

	"github.com/felixgeelhaar/apidrift/internal/drift"
)

// Default filter thresholds.
const (
	DefaultMinSeverity    = drift.SeverityMedium
	DefaultMinSampleCount = 5
	DefaultMinConsistency = 10.0
)

// Criteria are the thresholds a finding must meet to be reported.
type Criteria struct {
	MinSeverity    drift.Severity
	MinSampleCount int
	MinConsistency float64
}

// DefaultCriteria returns medium severity, 5 samples, 10% consistency.
func DefaultCriteria() Criteria {
	return Criteria{
		MinSeverity:    DefaultMinSeverity,
		MinSampleCount: DefaultMinSampleCount,
		MinConsistency: DefaultMinConsistency,
	}
}

// Record converts the criteria into the form stored on a report.
func (c Criteria) Record() *drift.FilterCriteria {
	n, pct := c.MinSampleCount, c.MinConsistency
	return &drift.FilterCriteria{
		MinSeverity:              c.MinSeverity,
		MinSampleCount:           &n,
		MinConsistencyPercentage: &pct,
	}
}

// Keep reports whether f meets every threshold.
func (c Criteria) Keep(f drift.Finding) bool {
	return f.Severity.Rank() >= c.MinSeverity.Rank() &&
		f.Confidence.SampleCount >= c.MinSampleCount &&
		f.Confidence.ConsistencyPercentage >= c.MinConsistency
}

// FilterFindings returns the findings that meet every threshold, in their
// original order. Filtering is idempotent.
func FilterFindings(findings []drift.Finding, c Criteria) []drift.Finding {
	out := make([]drift.Finding, 0, len(findings))
	for _, f := range findings {
		if c.Keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// SortFindings returns a copy ordered by severity descending, sample count
// descending, then field path ascending. The sort is stable.
func SortFindings(findings []drift.Finding) []drift.Finding {
	out := slices.Clone(findings)
	slices.SortStableFunc(out, compareFindings)
	return out
}

func compareFindings(a, b drift.Finding) int {
	if c := cmp.Compare(b.Severity.Rank(), a.Severity.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Confidence.SampleCount, a.Confidence.SampleCount); c != 0 {
		return c
	}
	return cmp.Compare(a.FieldPath, b.FieldPath)
}
