package present

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/apidrift/internal/diff"
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/ids"
	"github.com/felixgeelhaar/apidrift/internal/report"
	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

var t0 = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

func subject(method, path string, n int) drift.Subject {
	return drift.Subject{
		Method: method,
		Path:   path,
		Window: traffic.Window{StartTime: t0, EndTime: t0.Add(time.Hour), SampleCount: n},
	}
}

func sampleFindings() []drift.Finding {
	users := subject("GET", "/users", 200)
	orders := subject("POST", "/orders", 20)
	return []drift.Finding{
		drift.NewUndocumentedField(users, "nickname", []string{"string"}, 95),
		drift.NewUndocumentedStatusCode(users, 503, 30, []int{200}),
		drift.NewUndocumentedField(orders, "note", []string{"string"}, 90),
		drift.NewTypeMismatch(users, "age", []string{"string"}, 100, []string{"integer"}),
	}
}

func TestDeltaSummary(t *testing.T) {
	prev := &drift.Report{Findings: sampleFindings()[:2]}
	curr := &drift.Report{Findings: sampleFindings()[1:]}
	changes := diff.DetectChanges(prev, curr, ids.NewSequence("c"))

	d := BuildDeltaSummary(changes)
	if d.Appeared != 2 || d.Disappeared != 1 {
		t.Fatalf("unexpected summary: %+v", d)
	}

	want := "Since last run:\n- 2 findings appeared\n- 1 finding disappeared"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestDeltaSummaryNoChanges(t *testing.T) {
	d := BuildDeltaSummary(nil)
	if !d.Empty() {
		t.Fatal("expected empty summary")
	}
	if got := d.String(); got != "Since last run:\n- No changes detected" {
		t.Errorf("String() = %q", got)
	}
}

func TestDeltaSummaryShifts(t *testing.T) {
	d := DeltaSummary{SeverityShifts: 1, FrequencyShifts: 3}
	lines := d.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %v", lines)
	}
	if lines[1] != "- 1 severity shift" || lines[2] != "- 3 frequency shifts" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestApplyDensity(t *testing.T) {
	findings := sampleFindings()

	verbose := ApplyDensity(findings, DensityVerbose)
	if len(verbose.Findings) != len(findings) || verbose.HiddenCount != 0 {
		t.Errorf("verbose should show everything, got %d hidden", verbose.HiddenCount)
	}
	if verbose.Summary() != "" {
		t.Errorf("verbose summary should be empty, got %q", verbose.Summary())
	}

	compact := ApplyDensity(findings, DensityCompact)
	// Only the high severity /users findings have 100+ samples; the 503
	// (15%) is low severity.
	if len(compact.Findings) != 2 || compact.HiddenCount != 2 {
		t.Fatalf("compact: got %d visible, %d hidden", len(compact.Findings), compact.HiddenCount)
	}
	if compact.Findings[0].FieldPath != "nickname" || compact.Findings[1].FieldPath != "age" {
		t.Errorf("compact must keep order, got %s, %s", compact.Findings[0].FieldPath, compact.Findings[1].FieldPath)
	}
	if got := compact.Summary(); got != "Showing 2 of 4 findings (use --verbose to see all)" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestParseDensity(t *testing.T) {
	tests := []struct {
		in      string
		want    Density
		wantErr bool
	}{
		{"", DensityVerbose, false},
		{"verbose", DensityVerbose, false},
		{"compact", DensityCompact, false},
		{"dense", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDensity(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseDensity(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestGroupFindings(t *testing.T) {
	findings := sampleFindings()

	tests := []struct {
		by       GroupBy
		wantKeys []string
	}{
		{GroupByNone, []string{"all"}},
		{GroupByEndpoint, []string{"GET /users", "POST /orders"}},
		{GroupByField, []string{"nickname", "status-code", "note", "age"}},
		{GroupByStatus, []string{"field", "503"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.by), func(t *testing.T) {
			groups := GroupFindings(findings, tt.by)
			var keys []string
			total := 0
			for _, g := range groups {
				keys = append(keys, g.Key)
				total += len(g.Findings)
			}
			if strings.Join(keys, ",") != strings.Join(tt.wantKeys, ",") {
				t.Errorf("keys = %v, want %v", keys, tt.wantKeys)
			}
			if total != len(findings) {
				t.Errorf("grouping lost findings: %d of %d", total, len(findings))
			}
		})
	}

	if _, err := ParseGroupBy("owner"); err == nil {
		t.Error("expected error for unknown grouping")
	}
}

func TestSparkline(t *testing.T) {
	tests := []struct {
		in   []float64
		want string
	}{
		{nil, ""},
		{[]float64{0, 12.5, 25, 50, 87.5, 100}, "▁▂▃▅██"},
		{[]float64{12.4, 99.9}, "▁█"},
	}
	for _, tt := range tests {
		if got := Sparkline(tt.in); got != tt.want {
			t.Errorf("Sparkline(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDescribeTrend(t *testing.T) {
	tests := []struct {
		in   []float64
		want string
	}{
		{[]float64{10, 20}, "insufficient history"},
		{[]float64{10, 20, 30}, "insufficient history"},
		{[]float64{10, 10, 30, 30, 30}, "increasing over last 3 runs"},
		{[]float64{60, 60, 20, 20, 20}, "decreasing over last 3 runs"},
		{[]float64{40, 45, 42, 41}, "stable over recent runs"},
	}
	for _, tt := range tests {
		if got := DescribeTrend(tt.in); got != tt.want {
			t.Errorf("DescribeTrend(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrendLines(t *testing.T) {
	users := subject("GET", "/users", 100)
	at := func(pct float64) drift.Report {
		return drift.Report{Findings: []drift.Finding{drift.NewUndocumentedField(users, "email", []string{"string"}, pct)}}
	}
	newestFirst := []drift.Report{at(90), at(80), at(20), at(10)}

	lines := TrendLines(newestFirst)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Sparkline != "▁▂▇█" {
		t.Errorf("Sparkline = %q", lines[0].Sparkline)
	}
	if lines[0].Description != "increasing over last 3 runs" {
		t.Errorf("Description = %q", lines[0].Description)
	}
	if lines[0].Label() != "GET /users#email" {
		t.Errorf("Label() = %q", lines[0].Label())
	}

	if TrendLines(nil) != nil {
		t.Error("expected no lines without reports")
	}
}

func TestFormatters(t *testing.T) {
	rep := report.BuildDriftReport(sampleFindings(), subject("GET", "/users", 200).Window, 2, false)
	doc := NewDocument(rep, nil, ApplyDensity(rep.Findings, DensityVerbose), GroupByEndpoint)

	tests := []struct {
		format Format
		data   any
		check  func(t *testing.T, out string)
	}{
		{FormatJSON, rep, func(t *testing.T, out string) {
			if strings.Count(out, "\n") != 1 {
				t.Errorf("json should be a single line")
			}
		}},
		{FormatJSONPretty, rep, func(t *testing.T, out string) {
			if !strings.Contains(out, `  "endpointsAnalyzed": 2`) {
				t.Errorf("json-pretty not indented: %s", out)
			}
		}},
		{FormatNDJSON, doc, func(t *testing.T, out string) {
			lines := strings.Split(strings.TrimSpace(out), "\n")
			if len(lines) != 4 {
				t.Fatalf("expected one line per finding, got %d", len(lines))
			}
			var rec struct {
				Group   string        `json:"group"`
				Finding drift.Finding `json:"finding"`
			}
			if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
				t.Fatal(err)
			}
			if rec.Group != "GET /users" {
				t.Errorf("group = %q", rec.Group)
			}
		}},
		{FormatYAML, rep, func(t *testing.T, out string) {
			if !strings.Contains(out, "endpointsAnalyzed: 2") {
				t.Errorf("yaml missing field: %s", out)
			}
		}},
		{FormatSARIF, doc, func(t *testing.T, out string) {
			var s drift.SARIF
			if err := json.Unmarshal([]byte(out), &s); err != nil {
				t.Fatal(err)
			}
			if len(s.Runs) != 1 || len(s.Runs[0].Results) != 4 {
				t.Errorf("unexpected sarif: %s", out)
			}
		}},
		{FormatText, RunList(nil), func(t *testing.T, out string) {
			if !strings.Contains(out, "No runs recorded.") {
				t.Errorf("text = %q", out)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			f, err := NewFormatter(tt.format, &FormatterOptions{Writer: &buf})
			if err != nil {
				t.Fatalf("NewFormatter() error = %v", err)
			}
			if err := f.Format(tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			tt.check(t, buf.String())
		})
	}

	if _, err := NewFormatter("xml", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderLongitudinal(t *testing.T) {
	rep := report.BuildDriftReport(sampleFindings(), subject("GET", "/users", 200).Window, 2, false)
	v2 := &report.ReportV2{
		SchemaVersion: report.SchemaVersion,
		Report:        *rep,
		Run:           report.RunMetadata{RunID: "run-9", ExecutedAt: t0},
		SpecChange:    &report.SpecChange{PreviousHash: "a", CurrentHash: "b", Note: report.SpecChangeNote},
		Changes:       diff.DetectChanges(nil, rep, ids.NewSequence("c")),
	}

	var stdout, stderr bytes.Buffer
	r := &Renderer{
		Stdout:  &stdout,
		Stderr:  &stderr,
		Format:  FormatJSON,
		Density: DensityCompact,
		GroupBy: GroupByField,
		NoColor: true,
	}
	if err := r.RenderLongitudinal(v2); err != nil {
		t.Fatalf("RenderLongitudinal() error = %v", err)
	}

	var doc Document
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("stdout is not JSON: %v\n%s", err, stdout.String())
	}
	if doc.Run == nil || doc.Run.RunID != "run-9" {
		t.Errorf("run metadata missing: %+v", doc.Run)
	}
	if doc.Report.HiddenCount != 2 || len(doc.Report.Findings) != 2 {
		t.Errorf("unexpected grouping: %+v", doc.Report)
	}

	errOut := stderr.String()
	for _, want := range []string{
		"Since last run:",
		"- 4 findings appeared",
		report.SpecChangeNote,
		"Showing 2 of 4 findings",
		Footer,
	} {
		if !strings.Contains(errOut, want) {
			t.Errorf("stderr missing %q:\n%s", want, errOut)
		}
	}

	if len(v2.Report.Findings) != 4 {
		t.Error("rendering must not change the report")
	}
}

func TestRenderReportUngrouped(t *testing.T) {
	rep := report.EmptyReport(subject("GET", "/users", 3).Window, 1)

	var stdout, stderr bytes.Buffer
	r := &Renderer{Stdout: &stdout, Stderr: &stderr, Format: FormatJSONPretty, NoColor: true}
	if err := r.RenderReport(rep); err != nil {
		t.Fatal(err)
	}

	var got drift.Report
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got.ObservationComplete || got.Findings == nil {
		t.Errorf("empty report shape lost: %s", stdout.String())
	}
	if strings.Contains(stderr.String(), "Since last run") {
		t.Error("single-run output has no delta summary")
	}
}
