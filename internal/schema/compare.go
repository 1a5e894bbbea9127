package schema

import (
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/felixgeelhaar/apidrift/internal/observe"
)

// Comparison lines up one field path across contract and traffic. Pointer
// and slice fields are nil when the path is absent on that side.
type Comparison struct {
	FieldPath                    string
	InSpec                       bool
	InObserved                   bool
	SpecTypes                    []string
	ObservedTypes                []string
	SpecRequired                 *bool
	ObservedOccurrencePercentage *float64
}

// CompareFields returns one Comparison per path in the union of the
// schema's and the observations' paths, sorted by path.
func CompareFields(s *openapi3.Schema, observed []observe.FieldObservation) []Comparison {
	spec := ExtractFields(s)

	obs := make(map[string]observe.FieldObservation, len(observed))
	for _, f := range observed {
		obs[f.Path] = f
	}

	paths := make([]string, 0, len(spec)+len(obs))
	for p := range spec {
		paths = append(paths, p)
	}
	for p := range obs {
		if _, dup := spec[p]; !dup {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	out := make([]Comparison, 0, len(paths))
	for _, p := range paths {
		c := Comparison{FieldPath: p}
		if sf, ok := spec[p]; ok {
			required := sf.Required
			c.InSpec = true
			c.SpecTypes = sf.Types
			c.SpecRequired = &required
		}
		if of, ok := obs[p]; ok {
			pct := of.OccurrencePercentage
			c.InObserved = true
			c.ObservedTypes = of.ObservedTypes
			c.ObservedOccurrencePercentage = &pct
		}
		out = append(out, c)
	}
	return out
}

// TypesMatch reports whether the documented and observed type sets overlap
// once "integer" is treated as "number". A nil set stands for a side where
// the path is absent and cannot establish a mismatch; an empty documented
// set overlaps nothing.
func TypesMatch(specTypes, observedTypes []string) bool {
	if specTypes == nil || observedTypes == nil {
		return true
	}

	seen := make(map[string]bool, len(observedTypes))
	for _, t := range observedTypes {
		seen[normalizeType(t)] = true
	}
	for _, t := range specTypes {
		if seen[normalizeType(t)] {
			return true
		}
	}
	return false
}

func normalizeType(t string) string {
	if t == typeInteger {
		return typeNumber
	}
	return t
}
