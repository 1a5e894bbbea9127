package present

// Footer is printed after every rendered report.
const Footer = "Note: This report does not infer causality, ownership, or impact.\n" +
	"It reports observed behavior with uncertainty and context."

// Concept names a part of the report that carries a fixed annotation.
type Concept string

const (
	ConceptConfidence Concept = "confidence"
	ConceptSeverity   Concept = "severity"
	ConceptTrends     Concept = "trends"
)

var notes = map[Concept]string{
	ConceptConfidence: "(no confidence score is calculated; raw inputs are reported)",
	ConceptSeverity:   "(severity reflects data patterns, not business impact)",
	ConceptTrends:     "(trends describe observed patterns, not causes)",
}

// Note returns the annotation for c, or "".
func Note(c Concept) string {
	return notes[c]
}
