package present

import (
	"strconv"
	"strings"

	"github.com/felixgeelhaar/apidrift/internal/diff"
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/trend"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders percentages (0-100) as block characters, one per run.
func Sparkline(percentages []float64) string {
	var b strings.Builder
	for _, p := range percentages {
		i := int(p / 12.5)
		i = max(0, min(i, len(sparkBlocks)-1))
		b.WriteRune(sparkBlocks[i])
	}
	return b.String()
}

const trendWindow = 3

// DescribeTrend compares the mean of the last three runs with the mean of
// everything before them.
func DescribeTrend(percentages []float64) string {
	if len(percentages) <= trendWindow {
		return "insufficient history"
	}

	older := mean(percentages[:len(percentages)-trendWindow])
	recent := mean(percentages[len(percentages)-trendWindow:])

	switch {
	case recent > older*1.5:
		return "increasing over last 3 runs"
	case recent < older*0.67:
		return "decreasing over last 3 runs"
	default:
		return "stable over recent runs"
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// TrendLine is the rendered frequency history of one finding.
type TrendLine struct {
	Scope       diff.Scope `json:"scope" yaml:"scope"`
	Sparkline   string     `json:"sparkline" yaml:"sparkline"`
	Description string     `json:"description" yaml:"description"`
}

// Label is a compact scope description, e.g. "GET /users#email".
func (l TrendLine) Label() string {
	label := l.Scope.Method + " " + l.Scope.Path
	switch {
	case l.Scope.FieldPath != "":
		label += "#" + l.Scope.FieldPath
	case l.Scope.StatusCode != 0:
		label += "#" + strconv.Itoa(l.Scope.StatusCode)
	}
	return label
}

// TrendLines renders each finding of the newest report against the runs
// before it. reports are ordered newest first.
func TrendLines(reportsNewestFirst []drift.Report) []TrendLine {
	if len(reportsNewestFirst) == 0 {
		return nil
	}
	latest, history := reportsNewestFirst[0], reportsNewestFirst[1:]

	lines := make([]TrendLine, 0, len(latest.Findings))
	for _, f := range latest.Findings {
		s := trend.SeriesFor(f, history)
		lines = append(lines, TrendLine{
			Scope:       diff.CreateScope(f),
			Sparkline:   Sparkline(s.Percentages),
			Description: DescribeTrend(s.Percentages),
		})
	}
	return lines
}
