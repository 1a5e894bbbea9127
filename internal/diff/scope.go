// Package diff matches findings across runs and reports what changed
// between two reports.
package diff

import (
	"strconv"
	"strings"

	"github.com/felixgeelhaar/apidrift/internal/drift"
)

// Scope is the identity of a finding across runs. Two findings are the
// same finding iff all present parts match exactly.
type Scope struct {
	Method     string `json:"method" yaml:"method"`
	Path       string `json:"path" yaml:"path"`
	FieldPath  string `json:"fieldPath,omitempty" yaml:"fieldPath,omitempty"`
	StatusCode int    `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
}

// CreateScope projects a finding onto its identity.
func CreateScope(f drift.Finding) Scope {
	return Scope{
		Method:     f.Method,
		Path:       f.Path,
		FieldPath:  f.FieldPath,
		StatusCode: f.StatusCode,
	}
}

// Key renders method|path|field:<fieldPath>|status:<code>, omitting the
// optional parts that are absent.
func (s Scope) Key() string {
	parts := []string{s.Method, s.Path}
	if s.FieldPath != "" {
		parts = append(parts, "field:"+s.FieldPath)
	}
	if s.StatusCode != 0 {
		parts = append(parts, "status:"+strconv.Itoa(s.StatusCode))
	}
	return strings.Join(parts, "|")
}

// ScopeKey is shorthand for CreateScope(f).Key().
func ScopeKey(f drift.Finding) string {
	return CreateScope(f).Key()
}

// GroupByScope maps scope keys to findings. When two findings share a
// scope the later one wins.
func GroupByScope(findings []drift.Finding) map[string]drift.Finding {
	m := make(map[string]drift.Finding, len(findings))
	for _, f := range findings {
		m[ScopeKey(f)] = f
	}
	return m
}

// orderedKeys returns the distinct scope keys of findings in first-seen
// order.
func orderedKeys(findings []drift.Finding) []string {
	seen := make(map[string]bool, len(findings))
	keys := make([]string, 0, len(findings))
	for _, f := range findings {
		k := ScopeKey(f)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}
