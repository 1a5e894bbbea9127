package present

import (
	"fmt"

	"github.com/felixgeelhaar/apidrift/internal/drift"
)

// Density controls how many findings are shown.
type Density string

const (
	DensityVerbose Density = "verbose"
	DensityCompact Density = "compact"
)

// compactMinSamples is the sample count a high severity finding needs to
// stay visible in compact mode.
const compactMinSamples = 100

// ParseDensity accepts "verbose" (or empty) and "compact".
func ParseDensity(s string) (Density, error) {
	switch Density(s) {
	case "", DensityVerbose:
		return DensityVerbose, nil
	case DensityCompact:
		return DensityCompact, nil
	}
	return "", fmt.Errorf("unknown density %q (expected verbose or compact)", s)
}

// View is the visible subset of a report's findings.
type View struct {
	Findings    []drift.Finding
	HiddenCount int
}

// ApplyDensity hides findings in compact mode. It never reorders or
// rewrites the findings it keeps.
func ApplyDensity(findings []drift.Finding, mode Density) View {
	if mode != DensityCompact {
		return View{Findings: findings}
	}

	visible := make([]drift.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity == drift.SeverityHigh && f.Confidence.SampleCount >= compactMinSamples {
			visible = append(visible, f)
		}
	}
	return View{Findings: visible, HiddenCount: len(findings) - len(visible)}
}

// Summary explains how many findings were hidden, or returns "" when
// nothing was.
func (v View) Summary() string {
	if v.HiddenCount == 0 {
		return ""
	}
	total := len(v.Findings) + v.HiddenCount
	return fmt.Sprintf("Showing %d of %d findings (use --verbose to see all)", len(v.Findings), total)
}
