package diff

import (
	"math"

	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/ids"
)

// ChangeType names a transition between two runs.
type ChangeType string

const (
	ChangeAppeared        ChangeType = "finding_appeared"
	ChangeDisappeared     ChangeType = "finding_disappeared"
	ChangeSeverityShift   ChangeType = "severity_shift"
	ChangeFrequencyShift  ChangeType = "frequency_shift"
	ChangeConfidenceShift ChangeType = "confidence_shift"
)

// ChangeTypes lists every change type.
var ChangeTypes = []ChangeType{
	ChangeAppeared,
	ChangeDisappeared,
	ChangeSeverityShift,
	ChangeFrequencyShift,
	ChangeConfidenceShift,
}

const (
	// FrequencyShiftThreshold is the absolute percentage-point change in
	// observed frequency that counts as a shift.
	FrequencyShiftThreshold = 10.0
	// ConfidenceShiftThreshold is the relative sample count change, in
	// percent, that counts as a shift.
	ConfidenceShiftThreshold = 50.0
)

// Snapshot is a partial view of a finding: only the parts relevant to a
// change are populated.
type Snapshot struct {
	Severity            drift.Severity          `json:"severity,omitempty" yaml:"severity,omitempty"`
	FrequencyPercentage *float64                `json:"frequencyPercentage,omitempty" yaml:"frequencyPercentage,omitempty"`
	SampleCount         *int                    `json:"sampleCount,omitempty" yaml:"sampleCount,omitempty"`
	ConfidenceInputs    *drift.ConfidenceInputs `json:"confidenceInputs,omitempty" yaml:"confidenceInputs,omitempty"`
}

// ChangeEvent is one transition detected for one scope.
type ChangeEvent struct {
	ChangeID   string     `json:"changeId" yaml:"changeId"`
	ChangeType ChangeType `json:"changeType" yaml:"changeType"`
	Scope      Scope      `json:"scope" yaml:"scope"`
	Previous   *Snapshot  `json:"previous,omitempty" yaml:"previous,omitempty"`
	Current    *Snapshot  `json:"current,omitempty" yaml:"current,omitempty"`
}

func fullSnapshot(f drift.Finding) *Snapshot {
	sampleCount := f.Confidence.SampleCount
	confidence := f.Confidence
	snap := &Snapshot{
		Severity:         f.Severity,
		SampleCount:      &sampleCount,
		ConfidenceInputs: &confidence,
	}
	if f.Observed.Percentage != nil {
		pct := *f.Observed.Percentage
		snap.FrequencyPercentage = &pct
	}
	return snap
}

// DetectChanges diffs two reports by scope. Scopes are visited in the
// order they first appear in previous, then current. For scopes present in
// both, severity, frequency and confidence shifts are checked
// independently, so one scope can yield several events. A nil report is
// treated as empty. gen supplies change IDs; nil means random UUIDs.
func DetectChanges(previous, current *drift.Report, gen ids.Generator) []ChangeEvent {
	if gen == nil {
		gen = ids.UUIDGenerator{}
	}

	prevFindings := findingsOf(previous)
	currFindings := findingsOf(current)
	prevMap := GroupByScope(prevFindings)
	currMap := GroupByScope(currFindings)

	keys := orderedKeys(append(append([]drift.Finding{}, prevFindings...), currFindings...))

	var changes []ChangeEvent
	emit := func(t ChangeType, scope Scope, prev, curr *Snapshot) {
		changes = append(changes, ChangeEvent{
			ChangeID:   gen.NewID(),
			ChangeType: t,
			Scope:      scope,
			Previous:   prev,
			Current:    curr,
		})
	}

	for _, key := range keys {
		prev, inPrev := prevMap[key]
		curr, inCurr := currMap[key]

		switch {
		case inCurr && !inPrev:
			emit(ChangeAppeared, CreateScope(curr), nil, fullSnapshot(curr))
		case inPrev && !inCurr:
			emit(ChangeDisappeared, CreateScope(prev), fullSnapshot(prev), nil)
		default:
			scope := CreateScope(curr)

			if prev.Severity != curr.Severity {
				emit(ChangeSeverityShift, scope,
					&Snapshot{Severity: prev.Severity},
					&Snapshot{Severity: curr.Severity})
			}

			prevFreq, currFreq := prev.Percentage(), curr.Percentage()
			if math.Abs(currFreq-prevFreq) > FrequencyShiftThreshold {
				emit(ChangeFrequencyShift, scope,
					&Snapshot{FrequencyPercentage: &prevFreq},
					&Snapshot{FrequencyPercentage: &currFreq})
			}

			if confidenceShifted(prev.Confidence.SampleCount, curr.Confidence.SampleCount) {
				prevConf, currConf := prev.Confidence, curr.Confidence
				prevN, currN := prevConf.SampleCount, currConf.SampleCount
				emit(ChangeConfidenceShift, scope,
					&Snapshot{SampleCount: &prevN, ConfidenceInputs: &prevConf},
					&Snapshot{SampleCount: &currN, ConfidenceInputs: &currConf})
			}
		}
	}

	return changes
}

// confidenceShifted reports a relative sample count change above the
// threshold. No shift is computable from a zero previous count.
func confidenceShifted(prev, curr int) bool {
	if prev == 0 {
		return false
	}
	change := math.Abs(float64(curr-prev)) / float64(prev) * 100
	return change > ConfidenceShiftThreshold
}

func findingsOf(r *drift.Report) []drift.Finding {
	if r == nil {
		return nil
	}
	return r.Findings
}

// Counts tallies events by change type.
func Counts(changes []ChangeEvent) map[ChangeType]int {
	counts := make(map[ChangeType]int, len(ChangeTypes))
	for _, c := range changes {
		counts[c.ChangeType]++
	}
	return counts
}
