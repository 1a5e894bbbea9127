// Package continuity turns a quiet comparison window into an explicit
// "nothing changed" signal.
package continuity

import (
	"fmt"

	"github.com/felixgeelhaar/apidrift/internal/diff"
)

// Signal states that no change was detected across the compared runs.
type Signal struct {
	ComparedRuns      int    `json:"comparedRuns" yaml:"comparedRuns"`
	UnchangedFindings int    `json:"unchangedFindings" yaml:"unchangedFindings"`
	Message           string `json:"message" yaml:"message"`
}

// Build returns a Signal when at least one run was compared and no change
// events exist; otherwise nil.
func Build(comparedRuns int, changes []diff.ChangeEvent, totalFindings int) *Signal {
	if comparedRuns == 0 || len(changes) > 0 {
		return nil
	}

	return &Signal{
		ComparedRuns:      comparedRuns,
		UnchangedFindings: max(0, totalFindings-len(changes)),
		Message:           fmt.Sprintf("No changes detected across the last %d runs.", comparedRuns),
	}
}
