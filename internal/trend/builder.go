package trend

import (
	"github.com/felixgeelhaar/apidrift/internal/diff"
	"github.com/felixgeelhaar/apidrift/internal/drift"
)

// Summary describes one current finding's behavior across runs.
type Summary struct {
	Scope            diff.Scope      `json:"scope" yaml:"scope"`
	ObservationCount int             `json:"observationCount" yaml:"observationCount"`
	FrequencyBand    FrequencyBand   `json:"frequencyBand" yaml:"frequencyBand"`
	ConfidenceTrend  ConfidenceTrend `json:"confidenceTrend" yaml:"confidenceTrend"`
	Stability        Stability       `json:"stability" yaml:"stability"`
}

// Series is the per-run history of one scope, oldest first, ending with
// the current run.
type Series struct {
	SampleCounts []int
	Percentages  []float64
	Presence     []bool
}

// SeriesFor builds the series of a current finding against history given
// newest first. Runs where the scope is absent contribute zeros.
func SeriesFor(current drift.Finding, historyNewestFirst []drift.Report) Series {
	return seriesFor(current, groupOldestFirst(historyNewestFirst))
}

func groupOldestFirst(historyNewestFirst []drift.Report) []map[string]drift.Finding {
	grouped := make([]map[string]drift.Finding, 0, len(historyNewestFirst))
	for i := len(historyNewestFirst) - 1; i >= 0; i-- {
		grouped = append(grouped, diff.GroupByScope(historyNewestFirst[i].Findings))
	}
	return grouped
}

func seriesFor(current drift.Finding, history []map[string]drift.Finding) Series {
	key := diff.ScopeKey(current)
	n := len(history) + 1
	s := Series{
		SampleCounts: make([]int, 0, n),
		Percentages:  make([]float64, 0, n),
		Presence:     make([]bool, 0, n),
	}

	for _, run := range history {
		past, ok := run[key]
		s.Presence = append(s.Presence, ok)
		if ok {
			s.SampleCounts = append(s.SampleCounts, past.Confidence.SampleCount)
			s.Percentages = append(s.Percentages, past.Percentage())
		} else {
			s.SampleCounts = append(s.SampleCounts, 0)
			s.Percentages = append(s.Percentages, 0)
		}
	}

	s.Presence = append(s.Presence, true)
	s.SampleCounts = append(s.SampleCounts, current.Confidence.SampleCount)
	s.Percentages = append(s.Percentages, current.Percentage())
	return s
}

// averagePresent averages the non-zero percentages so runs where the scope
// was absent do not dilute the band.
func averagePresent(pcts []float64) float64 {
	var sum float64
	var n int
	for _, p := range pcts {
		if p > 0 {
			sum += p
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// BuildTrends summarizes every current finding against historical reports
// ordered newest first. Findings absent from the current run get no trend.
func BuildTrends(current []drift.Finding, historyNewestFirst []drift.Report) []Summary {
	history := groupOldestFirst(historyNewestFirst)
	trends := make([]Summary, 0, len(current))
	for _, f := range current {
		s := seriesFor(f, history)
		trends = append(trends, Summary{
			Scope:            diff.CreateScope(f),
			ObservationCount: len(historyNewestFirst) + 1,
			FrequencyBand:    CalculateFrequencyBand(averagePresent(s.Percentages)),
			ConfidenceTrend:  CalculateConfidenceTrend(s.SampleCounts),
			Stability:        AssessStability(s.Presence),
		})
	}
	return trends
}
