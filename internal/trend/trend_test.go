package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/apidrift/internal/drift"
)

func TestCalculateFrequencyBand(t *testing.T) {
	tests := []struct {
		avg  float64
		want FrequencyBand
	}{
		{100, BandDominant},
		{80.01, BandDominant},
		{80, BandCommon},
		{40.01, BandCommon},
		{40, BandIntermittent},
		{10, BandIntermittent},
		{9.999, BandRare},
		{0, BandRare},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalculateFrequencyBand(tt.avg), "avg=%v", tt.avg)
	}
}

func TestCalculateConfidenceTrend(t *testing.T) {
	tests := []struct {
		name   string
		counts []int
		want   ConfidenceTrend
	}{
		{"empty", nil, ConfidenceInsufficientData},
		{"two points", []int{1, 100}, ConfidenceInsufficientData},
		{"rising", []int{10, 20, 30}, ConfidenceStrengthening},
		{"falling", []int{30, 20, 10}, ConfidenceWeakening},
		{"flat", []int{50, 50, 50, 50}, ConfidenceStable},
		// 3 of 4 steps rising is 75% > 70%.
		{"mostly rising", []int{1, 2, 3, 2, 5}, ConfidenceStrengthening},
		// 2 of 3 steps is 66.7%, not enough.
		{"two thirds rising", []int{1, 2, 1, 3}, ConfidenceStable},
		{"high variance without direction", []int{0, 500, 0, 500, 0}, ConfidenceStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateConfidenceTrend(tt.counts))
		})
	}
}

func TestAssessStability(t *testing.T) {
	tests := []struct {
		name     string
		presence []bool
		want     Stability
	}{
		{"too few runs", []bool{true, true}, StabilityEmerging},
		{"always present", []bool{true, true, true}, StabilityStable},
		{"five of six", []bool{true, true, false, true, true, true}, StabilityStable},
		{"four of five is not above 80%", []bool{true, false, true, true, true}, StabilityVolatile},
		{"new in recent runs", []bool{false, false, false, false, true, true}, StabilityEmerging},
		{"exactly three runs, sparse", []bool{false, false, true}, StabilityEmerging},
		{"flapping", []bool{true, false, true, false, false, true}, StabilityVolatile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessStability(tt.presence))
		})
	}
}

func finding(field string, pct float64, samples int) drift.Finding {
	return drift.Finding{
		Type:       drift.TypeUndocumentedField,
		Method:     "GET",
		Path:       "/orders",
		FieldPath:  field,
		Observed:   drift.Observed{Percentage: &pct},
		Confidence: drift.ConfidenceInputs{SampleCount: samples},
		Severity:   drift.SeverityMedium,
	}
}

func TestSeriesForOrdersOldestFirst(t *testing.T) {
	// Newest first: run3, run2, run1.
	history := []drift.Report{
		{Findings: []drift.Finding{finding("x", 30, 300)}},
		{Findings: nil},
		{Findings: []drift.Finding{finding("x", 10, 100)}},
	}

	s := SeriesFor(finding("x", 40, 400), history)
	assert.Equal(t, []int{100, 0, 300, 400}, s.SampleCounts)
	assert.Equal(t, []float64{10, 0, 30, 40}, s.Percentages)
	assert.Equal(t, []bool{true, false, true, true}, s.Presence)
}

func TestBuildTrends(t *testing.T) {
	history := []drift.Report{
		{Findings: []drift.Finding{finding("x", 30, 300), finding("gone", 90, 10)}},
		{Findings: []drift.Finding{finding("x", 20, 200)}},
		{Findings: []drift.Finding{finding("x", 10, 100)}},
	}
	current := []drift.Finding{finding("x", 40, 400), finding("fresh", 5, 50)}

	trends := BuildTrends(current, history)
	require.Len(t, trends, 2)

	x := trends[0]
	assert.Equal(t, "x", x.Scope.FieldPath)
	assert.Equal(t, 4, x.ObservationCount)
	assert.Equal(t, BandIntermittent, x.FrequencyBand) // avg 25
	assert.Equal(t, ConfidenceStrengthening, x.ConfidenceTrend)
	assert.Equal(t, StabilityStable, x.Stability)

	fresh := trends[1]
	assert.Equal(t, "fresh", fresh.Scope.FieldPath)
	// Absent runs are not averaged in: 5% stays rare, not diluted further.
	assert.Equal(t, BandRare, fresh.FrequencyBand)
	// One rising step out of three: no direction dominates.
	assert.Equal(t, ConfidenceStable, fresh.ConfidenceTrend)
	assert.Equal(t, StabilityEmerging, fresh.Stability)
}

func TestBuildTrendsAveragesOnlyPresentRuns(t *testing.T) {
	history := []drift.Report{{}, {}, {Findings: []drift.Finding{finding("x", 50, 10)}}}
	trends := BuildTrends([]drift.Finding{finding("x", 50, 10)}, history)
	require.Len(t, trends, 1)
	assert.Equal(t, BandCommon, trends[0].FrequencyBand)
}

func TestBuildTrendsWithoutHistory(t *testing.T) {
	trends := BuildTrends([]drift.Finding{finding("x", 90, 10)}, nil)
	require.Len(t, trends, 1)
	assert.Equal(t, 1, trends[0].ObservationCount)
	assert.Equal(t, ConfidenceInsufficientData, trends[0].ConfidenceTrend)
	assert.Equal(t, StabilityEmerging, trends[0].Stability)
	assert.Equal(t, BandDominant, trends[0].FrequencyBand)

	assert.Empty(t, BuildTrends(nil, nil))
}
