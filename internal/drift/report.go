package drift

import (
	"fmt"

	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

// FilterCriteria records the thresholds a report was filtered with.
type FilterCriteria struct {
	MinSeverity              Severity `json:"minSeverity,omitempty" yaml:"minSeverity,omitempty"`
	MinSampleCount           *int     `json:"minSampleCount,omitempty" yaml:"minSampleCount,omitempty"`
	MinConsistencyPercentage *float64 `json:"minConsistencyPercentage,omitempty" yaml:"minConsistencyPercentage,omitempty"`
}

// Report is the result of one run: filtered, ordered findings over a window.
type Report struct {
	Window            traffic.Window  `json:"window" yaml:"window"`
	EndpointsAnalyzed int             `json:"endpointsAnalyzed" yaml:"endpointsAnalyzed"`
	Findings          []Finding       `json:"findings" yaml:"findings"`
	Filtered          bool            `json:"filtered" yaml:"filtered"`
	FilterCriteria    *FilterCriteria `json:"filterCriteria,omitempty" yaml:"filterCriteria,omitempty"`
	// ObservationComplete marks the affirmative empty report.
	ObservationComplete bool `json:"observationComplete,omitempty" yaml:"observationComplete,omitempty"`
}

// Summary counts findings by severity and type.
type Summary struct {
	TotalFindings int          `json:"totalFindings" yaml:"totalFindings"`
	High          int          `json:"high" yaml:"high"`
	Medium        int          `json:"medium" yaml:"medium"`
	Low           int          `json:"low" yaml:"low"`
	ByType        map[Type]int `json:"byType" yaml:"byType"`
}

// Summarize tallies a report's findings.
func (r *Report) Summarize() Summary {
	s := Summary{
		TotalFindings: len(r.Findings),
		ByType:        make(map[Type]int),
	}
	for _, f := range r.Findings {
		switch f.Severity {
		case SeverityHigh:
			s.High++
		case SeverityMedium:
			s.Medium++
		case SeverityLow:
			s.Low++
		}
		s.ByType[f.Type]++
	}
	return s
}

// Validate checks every finding in the report.
func (r *Report) Validate() error {
	for i, f := range r.Findings {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("finding %d: %w", i, err)
		}
	}
	return nil
}
