package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

var start = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func window(n int) traffic.Window {
	return traffic.Window{
		StartTime:   start,
		EndTime:     start.Add(time.Minute),
		SampleCount: n,
	}
}

func subject(n int) drift.Subject {
	return drift.Subject{Method: "GET", Path: "/users", Window: window(n)}
}

func field(n int, path string, pct float64) drift.Finding {
	return drift.NewUndocumentedField(subject(n), path, []string{"string"}, pct)
}

func paths(findings []drift.Finding) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.FieldPath
	}
	return out
}

func TestDefaultCriteria(t *testing.T) {
	c := DefaultCriteria()
	assert.Equal(t, drift.SeverityMedium, c.MinSeverity)
	assert.Equal(t, 5, c.MinSampleCount)
	assert.Equal(t, 10.0, c.MinConsistency)

	rec := c.Record()
	require.NotNil(t, rec.MinSampleCount)
	require.NotNil(t, rec.MinConsistencyPercentage)
	assert.Equal(t, 5, *rec.MinSampleCount)
	assert.Equal(t, 10.0, *rec.MinConsistencyPercentage)
}

func TestFilterFindings(t *testing.T) {
	findings := []drift.Finding{
		field(100, "high", 90),
		field(100, "medium", 30),
		field(100, "low", 5),
		field(3, "few-samples", 90),
	}

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"defaults", DefaultCriteria(), []string{"high", "medium"}},
		{"low severity allowed", Criteria{MinSeverity: drift.SeverityLow, MinSampleCount: 5}, []string{"high", "medium", "low"}},
		{"small windows allowed", Criteria{MinSeverity: drift.SeverityHigh, MinSampleCount: 1}, []string{"high", "few-samples"}},
		{"consistency threshold", Criteria{MinSeverity: drift.SeverityLow, MinSampleCount: 5, MinConsistency: 50}, []string{"high"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterFindings(findings, tt.criteria)
			assert.Equal(t, tt.want, paths(got))

			again := FilterFindings(got, tt.criteria)
			assert.Equal(t, got, again, "filtering twice must not change the result")
		})
	}
}

func TestSortFindings(t *testing.T) {
	findings := []drift.Finding{
		field(100, "b", 30),
		field(20, "z", 90),
		field(100, "y", 90),
		field(100, "a", 30),
		field(100, "x", 90),
	}
	original := paths(findings)

	sorted := SortFindings(findings)
	assert.Equal(t, []string{"x", "y", "z", "a", "b"}, paths(sorted))
	assert.Equal(t, original, paths(findings), "input must be left untouched")

	assert.Equal(t, paths(sorted), paths(SortFindings(sorted)))
}

func TestBuildDriftReport(t *testing.T) {
	findings := []drift.Finding{
		field(100, "medium", 30),
		field(100, "low", 5),
		field(100, "high", 90),
	}

	t.Run("default filter", func(t *testing.T) {
		r := BuildDriftReport(findings, window(100), 3, true)
		assert.True(t, r.Filtered)
		require.NotNil(t, r.FilterCriteria)
		assert.Equal(t, drift.SeverityMedium, r.FilterCriteria.MinSeverity)
		assert.Equal(t, []string{"high", "medium"}, paths(r.Findings))
		assert.Equal(t, 3, r.EndpointsAnalyzed)
		assert.False(t, r.ObservationComplete)
	})

	t.Run("no filter", func(t *testing.T) {
		r := BuildDriftReport(findings, window(100), 3, false)
		assert.False(t, r.Filtered)
		assert.Nil(t, r.FilterCriteria)
		assert.Equal(t, []string{"high", "medium", "low"}, paths(r.Findings))
	})

	t.Run("everything filtered", func(t *testing.T) {
		r := BuildDriftReport([]drift.Finding{field(100, "low", 5)}, window(100), 1, true)
		assert.NotNil(t, r.Findings)
		assert.Empty(t, r.Findings)
	})

	t.Run("explicit criteria", func(t *testing.T) {
		r := BuildFilteredReport(findings, window(100), 3, Criteria{MinSeverity: drift.SeverityHigh})
		assert.Equal(t, []string{"high"}, paths(r.Findings))
		assert.Equal(t, drift.SeverityHigh, r.FilterCriteria.MinSeverity)
	})
}

func TestEmptyReport(t *testing.T) {
	r := EmptyReport(window(42), 4)

	assert.True(t, r.ObservationComplete)
	assert.True(t, r.Filtered)
	assert.NotNil(t, r.Findings)
	assert.Empty(t, r.Findings)
	assert.Equal(t, 4, r.EndpointsAnalyzed)
	assert.Equal(t, 42, r.Window.SampleCount)
	require.NotNil(t, r.FilterCriteria)
	assert.Equal(t, DefaultCriteria().Record(), r.FilterCriteria)
	assert.NoError(t, r.Validate())
}
