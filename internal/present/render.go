package present

import (
	"fmt"
	"io"
	"os"

	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/report"
)

// Renderer writes a report to Stdout in the chosen format and the
// human-readable context around it to Stderr, so stdout stays machine
// readable.
type Renderer struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Format  Format
	Density Density
	GroupBy GroupBy
	NoColor bool
	SARIF   drift.SARIFOptions
}

func (r *Renderer) stdout() io.Writer {
	if r.Stdout == nil {
		return os.Stdout
	}
	return r.Stdout
}

func (r *Renderer) stderr() io.Writer {
	if r.Stderr == nil {
		return os.Stderr
	}
	return r.Stderr
}

// RenderReport writes a single-run report.
func (r *Renderer) RenderReport(rep *drift.Report) error {
	view := ApplyDensity(rep.Findings, r.Density)
	r.writeHeader(nil, view)

	var payload any = rep
	switch {
	case r.grouped():
		payload = NewDocument(rep, nil, view, r.GroupBy)
	case view.HiddenCount > 0:
		visible := *rep
		visible.Findings = view.Findings
		payload = &visible
	}
	return r.write(payload)
}

// RenderLongitudinal writes a report with its run context.
func (r *Renderer) RenderLongitudinal(v2 *report.ReportV2) error {
	view := ApplyDensity(v2.Report.Findings, r.Density)
	r.writeHeader(v2, view)

	var payload any = v2
	switch {
	case r.grouped():
		payload = NewDocument(&v2.Report, v2, view, r.GroupBy)
	case view.HiddenCount > 0:
		visible := *v2
		visible.Report.Findings = view.Findings
		payload = &visible
	}
	return r.write(payload)
}

func (r *Renderer) grouped() bool {
	return r.GroupBy != "" && r.GroupBy != GroupByNone
}

func (r *Renderer) write(payload any) error {
	f, err := NewFormatter(r.Format, &FormatterOptions{Writer: r.stdout(), SARIF: r.SARIF})
	if err != nil {
		return err
	}
	if err := f.Format(payload); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	w := r.stderr()
	st := NewStyles(w, r.NoColor)
	fmt.Fprintln(w)
	fmt.Fprintln(w, st.Render(st.Muted, Footer))
	return nil
}

func (r *Renderer) writeHeader(v2 *report.ReportV2, view View) {
	w := r.stderr()
	st := NewStyles(w, r.NoColor)
	wrote := false

	if v2 != nil {
		delta := BuildDeltaSummary(v2.Changes)
		for i, line := range delta.Lines() {
			if i == 0 {
				line = st.Render(st.Title, line)
			}
			fmt.Fprintln(w, line)
		}
		if v2.SpecChange != nil {
			fmt.Fprintln(w, st.Render(st.Warning, "! "+v2.SpecChange.Note))
		}
		if v2.Continuity != nil {
			fmt.Fprintln(w, st.Render(st.Success, v2.Continuity.Message))
		}
		wrote = true
	}

	if s := view.Summary(); s != "" {
		fmt.Fprintln(w, s)
		wrote = true
	}

	if len(view.Findings) > 0 {
		fmt.Fprintln(w, st.Render(st.Muted, Note(ConceptSeverity)))
		fmt.Fprintln(w, st.Render(st.Muted, Note(ConceptConfidence)))
		wrote = true
	}

	if wrote {
		fmt.Fprintln(w)
	}
}
