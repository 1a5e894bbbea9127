package present

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/felixgeelhaar/apidrift/internal/report"
)

// Styles colour the human-readable lines written next to a report.
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style

	plain bool
}

// NewStyles binds styles to w so colour is only emitted to terminals.
func NewStyles(w io.Writer, noColor bool) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Title: r.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		Muted: r.NewStyle().
			Foreground(lipgloss.Color("241")),
		Warning: r.NewStyle().
			Foreground(lipgloss.Color("214")),
		Success: r.NewStyle().
			Foreground(lipgloss.Color("46")),
		plain: noColor,
	}
}

// Render applies s unless colour is disabled.
func (st Styles) Render(s lipgloss.Style, text string) string {
	if st.plain {
		return text
	}
	return s.Render(text)
}

// RunList renders stored runs as a table.
type RunList []report.RunRef

func (l RunList) String() string {
	if len(l) == 0 {
		return "No runs recorded."
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN ID", "EXECUTED AT", "SERVICE", "ENVIRONMENT")
	for _, r := range l {
		t.Row(r.RunID, r.ExecutedAt.UTC().Format("2006-01-02 15:04:05Z"), r.ServiceName, r.Environment)
	}
	return t.String()
}

// TrendTable renders trend lines as a table followed by the trends note.
type TrendTable []TrendLine

func (tt TrendTable) String() string {
	if len(tt) == 0 {
		return "No findings in the latest run."
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("FINDING", "FREQUENCY", "TREND")
	for _, l := range tt {
		t.Row(l.Label(), l.Sparkline, l.Description)
	}
	var b strings.Builder
	fmt.Fprintln(&b, t.String())
	b.WriteString(Note(ConceptTrends))
	return b.String()
}
