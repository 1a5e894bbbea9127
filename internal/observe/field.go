// Package observe aggregates JSON bodies from traffic samples into
// per-field statistics.
package observe

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/tidwall/gjson"
)

// MaxSampleValues caps the unique values retained per field.
const MaxSampleValues = 10

// FieldObservation is the aggregate for one field path.
type FieldObservation struct {
	Path                 string            `json:"path" yaml:"path"`
	OccurrenceCount      int               `json:"occurrenceCount" yaml:"occurrenceCount"`
	OccurrencePercentage float64           `json:"occurrencePercentage" yaml:"occurrencePercentage"`
	ObservedTypes        []string          `json:"observedTypes" yaml:"observedTypes"`
	SampleValues         []json.RawMessage `json:"sampleValues" yaml:"-"`
}

type fieldStats struct {
	count  int
	types  map[string]struct{}
	seen   map[string]struct{}
	values []json.RawMessage
}

// FieldObserver accumulates field statistics over a series of bodies.
// It is not safe for concurrent use; build one per endpoint and body kind.
type FieldObserver struct {
	fields       map[string]*fieldStats
	totalSamples int
}

// NewFieldObserver returns an empty observer.
func NewFieldObserver() *FieldObserver {
	return &FieldObserver{fields: make(map[string]*fieldStats)}
}

// Observe records one body. Absent and null bodies count toward the total
// but contribute no fields.
func (o *FieldObserver) Observe(body json.RawMessage) {
	o.totalSamples++

	if len(body) == 0 {
		return
	}
	root := gjson.ParseBytes(body)
	if !root.Exists() || root.Type == gjson.Null {
		return
	}

	paths := make(map[string]gjson.Result)
	extractFieldPaths(root, "", paths)

	for path, value := range paths {
		st, ok := o.fields[path]
		if !ok {
			st = &fieldStats{
				types: make(map[string]struct{}),
				seen:  make(map[string]struct{}),
			}
			o.fields[path] = st
		}
		st.count++
		st.types[typeName(value)] = struct{}{}

		if len(st.values) < MaxSampleValues {
			raw := compactRaw(value.Raw)
			if _, dup := st.seen[raw]; !dup {
				st.seen[raw] = struct{}{}
				st.values = append(st.values, json.RawMessage(raw))
			}
		}
	}
}

// TotalSamples is the number of Observe calls so far.
func (o *FieldObserver) TotalSamples() int {
	return o.totalSamples
}

// Observations returns one entry per field path, sorted by path.
// Percentages are relative to TotalSamples, not to the field's own count.
// Calling it has no effect on the observer.
func (o *FieldObserver) Observations() []FieldObservation {
	out := make([]FieldObservation, 0, len(o.fields))

	for path, st := range o.fields {
		types := make([]string, 0, len(st.types))
		for t := range st.types {
			types = append(types, t)
		}
		sort.Strings(types)

		var pct float64
		if o.totalSamples > 0 {
			pct = float64(st.count) / float64(o.totalSamples) * 100
		}

		values := make([]json.RawMessage, len(st.values))
		copy(values, st.values)

		out = append(out, FieldObservation{
			Path:                 path,
			OccurrenceCount:      st.count,
			OccurrencePercentage: pct,
			ObservedTypes:        types,
			SampleValues:         values,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// extractFieldPaths flattens v into dot/bracket paths. Arrays register
// themselves and their first element at prefix[0]; later elements are not
// inspected.
func extractFieldPaths(v gjson.Result, prefix string, into map[string]gjson.Result) {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return
	case v.IsArray():
		if prefix != "" {
			into[prefix] = v
		}
		var first gjson.Result
		v.ForEach(func(_, elem gjson.Result) bool {
			first = elem
			return false
		})
		if !first.Exists() {
			return
		}
		elemPath := prefix + "[0]"
		into[elemPath] = first
		if first.IsObject() {
			extractObject(first, elemPath, into)
		}
	case v.IsObject():
		extractObject(v, prefix, into)
	default:
		if prefix != "" {
			into[prefix] = v
		}
	}
}

func extractObject(v gjson.Result, prefix string, into map[string]gjson.Result) {
	v.ForEach(func(key, value gjson.Result) bool {
		path := key.String()
		if prefix != "" {
			path = prefix + "." + path
		}
		into[path] = value
		if value.IsObject() || value.IsArray() {
			extractFieldPaths(value, path, into)
		}
		return true
	})
}

func typeName(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	if v.IsArray() {
		return "array"
	}
	return "object"
}

func compactRaw(raw string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(raw)); err != nil {
		return raw
	}
	return buf.String()
}
