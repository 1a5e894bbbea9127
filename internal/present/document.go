package present

import (
	"github.com/felixgeelhaar/apidrift/internal/continuity"
	"github.com/felixgeelhaar/apidrift/internal/diff"
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/report"
	"github.com/felixgeelhaar/apidrift/internal/traffic"
	"github.com/felixgeelhaar/apidrift/internal/trend"
)

// GroupedReport is a single-run report whose findings are grouped.
type GroupedReport struct {
	Window              traffic.Window        `json:"window" yaml:"window"`
	EndpointsAnalyzed   int                   `json:"endpointsAnalyzed" yaml:"endpointsAnalyzed"`
	Findings            []Group               `json:"findings" yaml:"findings"`
	HiddenCount         int                   `json:"hiddenCount,omitempty" yaml:"hiddenCount,omitempty"`
	Filtered            bool                  `json:"filtered" yaml:"filtered"`
	FilterCriteria      *drift.FilterCriteria `json:"filterCriteria,omitempty" yaml:"filterCriteria,omitempty"`
	ObservationComplete bool                  `json:"observationComplete,omitempty" yaml:"observationComplete,omitempty"`
}

// Document is a grouped report plus whatever run context is available.
type Document struct {
	SchemaVersion string              `json:"schemaVersion,omitempty" yaml:"schemaVersion,omitempty"`
	Report        GroupedReport       `json:"report" yaml:"report"`
	Run           *report.RunMetadata `json:"run,omitempty" yaml:"run,omitempty"`
	PreviousRun   *report.RunRef      `json:"previousRun,omitempty" yaml:"previousRun,omitempty"`
	SpecChange    *report.SpecChange  `json:"specChange,omitempty" yaml:"specChange,omitempty"`
	Changes       []diff.ChangeEvent  `json:"changes,omitempty" yaml:"changes,omitempty"`
	Trends        []trend.Summary     `json:"trends,omitempty" yaml:"trends,omitempty"`
	Continuity    *continuity.Signal  `json:"continuity,omitempty" yaml:"continuity,omitempty"`
}

// NewDocument groups the visible findings of r. v2 may be nil.
func NewDocument(r *drift.Report, v2 *report.ReportV2, view View, by GroupBy) *Document {
	doc := &Document{
		Report: GroupedReport{
			Window:              r.Window,
			EndpointsAnalyzed:   r.EndpointsAnalyzed,
			Findings:            GroupFindings(view.Findings, by),
			HiddenCount:         view.HiddenCount,
			Filtered:            r.Filtered,
			FilterCriteria:      r.FilterCriteria,
			ObservationComplete: r.ObservationComplete,
		},
	}
	if v2 != nil {
		run := v2.Run
		doc.SchemaVersion = v2.SchemaVersion
		doc.Run = &run
		doc.PreviousRun = v2.PreviousRun
		doc.SpecChange = v2.SpecChange
		doc.Changes = v2.Changes
		doc.Trends = v2.Trends
		doc.Continuity = v2.Continuity
	}
	return doc
}

// Flatten returns the document as an ungrouped report.
func (d *Document) Flatten() *drift.Report {
	r := &drift.Report{
		Window:              d.Report.Window,
		EndpointsAnalyzed:   d.Report.EndpointsAnalyzed,
		Findings:            []drift.Finding{},
		Filtered:            d.Report.Filtered,
		FilterCriteria:      d.Report.FilterCriteria,
		ObservationComplete: d.Report.ObservationComplete,
	}
	for _, g := range d.Report.Findings {
		r.Findings = append(r.Findings, g.Findings...)
	}
	return r
}

// groupedFinding is one NDJSON record.
type groupedFinding struct {
	Group   string        `json:"group"`
	Finding drift.Finding `json:"finding"`
}

// Records lists one record per finding for line-delimited output.
func (d *Document) Records() []any {
	var out []any
	for _, g := range d.Report.Findings {
		for _, f := range g.Findings {
			out = append(out, groupedFinding{Group: g.Key, Finding: f})
		}
	}
	return out
}
