// Package present renders drift reports for people and for downstream
// tools: change summaries, density control, grouping, export formats and
// trend sparklines.
package present

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/apidrift/internal/diff"
)

// DeltaSummary counts the changes since the previous run. Confidence
// shifts are left out of the headline.
type DeltaSummary struct {
	Appeared        int `json:"appeared" yaml:"appeared"`
	Disappeared     int `json:"disappeared" yaml:"disappeared"`
	SeverityShifts  int `json:"severityShifts" yaml:"severityShifts"`
	FrequencyShifts int `json:"frequencyShifts" yaml:"frequencyShifts"`
}

// BuildDeltaSummary tallies change events by type.
func BuildDeltaSummary(changes []diff.ChangeEvent) DeltaSummary {
	counts := diff.Counts(changes)
	return DeltaSummary{
		Appeared:        counts[diff.ChangeAppeared],
		Disappeared:     counts[diff.ChangeDisappeared],
		SeverityShifts:  counts[diff.ChangeSeverityShift],
		FrequencyShifts: counts[diff.ChangeFrequencyShift],
	}
}

// Empty reports whether no headline change occurred.
func (d DeltaSummary) Empty() bool {
	return d.Appeared == 0 && d.Disappeared == 0 && d.SeverityShifts == 0 && d.FrequencyShifts == 0
}

// Lines renders the summary as a header and one line per non-zero count.
func (d DeltaSummary) Lines() []string {
	lines := []string{"Since last run:"}
	if d.Appeared > 0 {
		lines = append(lines, fmt.Sprintf("- %d %s appeared", d.Appeared, plural(d.Appeared, "finding")))
	}
	if d.Disappeared > 0 {
		lines = append(lines, fmt.Sprintf("- %d %s disappeared", d.Disappeared, plural(d.Disappeared, "finding")))
	}
	if d.SeverityShifts > 0 {
		lines = append(lines, fmt.Sprintf("- %d severity %s", d.SeverityShifts, plural(d.SeverityShifts, "shift")))
	}
	if d.FrequencyShifts > 0 {
		lines = append(lines, fmt.Sprintf("- %d frequency %s", d.FrequencyShifts, plural(d.FrequencyShifts, "shift")))
	}
	if d.Empty() {
		lines = append(lines, "- No changes detected")
	}
	return lines
}

func (d DeltaSummary) String() string {
	return strings.Join(d.Lines(), "\n")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
