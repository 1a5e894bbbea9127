package drift

import (
	"fmt"
	"slices"

	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

// Type discriminates the kinds of divergence a Finding can describe.
type Type string

const (
	TypeUndocumentedField      Type = "undocumented-field"
	TypeMissingField           Type = "missing-field"
	TypeTypeMismatch           Type = "type-mismatch"
	TypeUndocumentedStatusCode Type = "undocumented-status-code"
	TypeMissingStatusCode      Type = "missing-status-code"
)

// Types lists every finding type.
var Types = []Type{
	TypeUndocumentedField,
	TypeMissingField,
	TypeTypeMismatch,
	TypeUndocumentedStatusCode,
	TypeMissingStatusCode,
}

// IsField reports whether findings of this type are scoped to a field path.
func (t Type) IsField() bool {
	return t == TypeUndocumentedField || t == TypeMissingField || t == TypeTypeMismatch
}

// Severity is the statistical strength of a finding's signal. It says
// nothing about business impact.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities low < medium < high. Unknown values rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	default:
		return -1
	}
}

// ParseSeverity converts a configured severity name.
func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return sev, nil
	}
	return "", fmt.Errorf("unknown severity %q (expected high, medium or low)", s)
}

// DetermineSeverity classifies a percentage-based signal:
// high above 80%, or above 50% with more than 10 samples; low below 20% or
// with fewer than 5 samples; medium otherwise.
func DetermineSeverity(percentage float64, sampleCount int) Severity {
	if percentage > 80 || (percentage > 50 && sampleCount > 10) {
		return SeverityHigh
	}
	if percentage < 20 || sampleCount < 5 {
		return SeverityLow
	}
	return SeverityMedium
}

// ConfidenceInputs are the raw inputs a reader may weigh. No score is
// derived from them.
type ConfidenceInputs struct {
	SampleCount           int     `json:"sampleCount" yaml:"sampleCount"`
	ConsistencyPercentage float64 `json:"consistencyPercentage" yaml:"consistencyPercentage"`
	WindowDurationMs      int64   `json:"windowDurationMs" yaml:"windowDurationMs"`
}

// Observed is what traffic showed.
type Observed struct {
	Types      []string `json:"types,omitempty" yaml:"types,omitempty"`
	Count      *int     `json:"count,omitempty" yaml:"count,omitempty"`
	Percentage *float64 `json:"percentage,omitempty" yaml:"percentage,omitempty"`
}

// Documented is what the contract declared.
type Documented struct {
	Types       []string `json:"types,omitempty" yaml:"types,omitempty"`
	Required    *bool    `json:"required,omitempty" yaml:"required,omitempty"`
	StatusCodes []int    `json:"statusCodes,omitempty" yaml:"statusCodes,omitempty"`
}

// Finding is one divergence between contract and traffic. Build findings
// with the per-type constructors; a Finding is not modified after creation.
type Finding struct {
	Type       Type             `json:"type" yaml:"type"`
	Method     string           `json:"method" yaml:"method"`
	Path       string           `json:"path" yaml:"path"`
	FieldPath  string           `json:"fieldPath,omitempty" yaml:"fieldPath,omitempty"`
	StatusCode int              `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	Observed   Observed         `json:"observed" yaml:"observed"`
	Documented *Documented      `json:"documented,omitempty" yaml:"documented,omitempty"`
	Confidence ConfidenceInputs `json:"confidence" yaml:"confidence"`
	Severity   Severity         `json:"severity" yaml:"severity"`
	Window     traffic.Window   `json:"window" yaml:"window"`
}

// Percentage returns the observed percentage, or 0 when none was recorded.
func (f Finding) Percentage() float64 {
	if f.Observed.Percentage == nil {
		return 0
	}
	return *f.Observed.Percentage
}

// Subject identifies the endpoint and window a finding is computed from.
type Subject struct {
	Method string
	Path   string
	Window traffic.Window
}

// base derives severity and confidence once from the signal strength.
func (s Subject) base(t Type, signal float64, severitySamples int) Finding {
	return Finding{
		Type:   t,
		Method: s.Method,
		Path:   s.Path,
		Confidence: ConfidenceInputs{
			SampleCount:           s.Window.SampleCount,
			ConsistencyPercentage: signal,
			WindowDurationMs:      s.Window.DurationMs(),
		},
		Severity: DetermineSeverity(signal, severitySamples),
		Window:   s.Window,
	}
}

// NewUndocumentedField records a field seen in traffic but absent from the
// contract. The signal is the field's occurrence percentage.
func NewUndocumentedField(s Subject, fieldPath string, observedTypes []string, percentage float64) Finding {
	f := s.base(TypeUndocumentedField, percentage, s.Window.SampleCount)
	f.FieldPath = fieldPath
	f.Observed = Observed{Types: observedTypes, Percentage: &percentage}
	return f
}

// NewMissingField records a required field seen in under half of the
// bodies. The signal is the absence rate, 100 - percentage.
func NewMissingField(s Subject, fieldPath string, observedTypes []string, percentage float64, specTypes []string) Finding {
	f := s.base(TypeMissingField, 100-percentage, s.Window.SampleCount)
	required := true
	f.FieldPath = fieldPath
	f.Observed = Observed{Types: observedTypes, Percentage: &percentage}
	f.Documented = &Documented{Types: specTypes, Required: &required}
	return f
}

// NewTypeMismatch records a field whose observed types share nothing with
// the documented ones. specTypes is empty when the contract declares the
// field without a type.
func NewTypeMismatch(s Subject, fieldPath string, observedTypes []string, percentage float64, specTypes []string) Finding {
	if specTypes == nil {
		specTypes = []string{}
	}
	f := s.base(TypeTypeMismatch, percentage, s.Window.SampleCount)
	f.FieldPath = fieldPath
	f.Observed = Observed{Types: observedTypes, Percentage: &percentage}
	f.Documented = &Documented{Types: specTypes}
	return f
}

// NewUndocumentedStatusCode records a status code the contract does not
// list. Severity uses the code's own count as the sample size.
func NewUndocumentedStatusCode(s Subject, statusCode, count int, documented []int) Finding {
	var pct float64
	if s.Window.SampleCount > 0 {
		pct = float64(count) / float64(s.Window.SampleCount) * 100
	}
	f := s.base(TypeUndocumentedStatusCode, pct, count)
	f.StatusCode = statusCode
	f.Observed = Observed{Count: &count, Percentage: &pct}
	f.Documented = &Documented{StatusCodes: documented}
	return f
}

// NewMissingStatusCode records a documented status code that never
// appeared in traffic.
func NewMissingStatusCode(s Subject, statusCode int, documented []int) Finding {
	zero, pct := 0, 0.0
	f := s.base(TypeMissingStatusCode, 100, s.Window.SampleCount)
	f.StatusCode = statusCode
	f.Observed = Observed{Count: &zero, Percentage: &pct}
	f.Documented = &Documented{StatusCodes: documented}
	return f
}

// Validate checks the per-type shape of a finding. It is applied to
// findings decoded from stored reports.
func (f Finding) Validate() error {
	if !slices.Contains(Types, f.Type) {
		return fmt.Errorf("unknown finding type %q", f.Type)
	}
	if f.Method == "" || f.Path == "" {
		return fmt.Errorf("%s finding: method and path are required", f.Type)
	}
	if f.Severity.Rank() < 0 {
		return fmt.Errorf("%s finding: invalid severity %q", f.Type, f.Severity)
	}

	if f.Type.IsField() {
		if f.FieldPath == "" {
			return fmt.Errorf("%s finding: fieldPath is required", f.Type)
		}
		if f.Observed.Percentage == nil {
			return fmt.Errorf("%s finding: observed.percentage is required", f.Type)
		}
	} else if f.StatusCode == 0 {
		return fmt.Errorf("%s finding: statusCode is required", f.Type)
	}

	switch f.Type {
	case TypeMissingField:
		if f.Documented == nil || f.Documented.Required == nil || !*f.Documented.Required {
			return fmt.Errorf("missing-field finding: documented.required must be true")
		}
	case TypeTypeMismatch:
		if f.Documented == nil {
			return fmt.Errorf("type-mismatch finding: documented block is required")
		}
	case TypeUndocumentedStatusCode:
		if f.Observed.Count == nil {
			return fmt.Errorf("undocumented-status-code finding: observed.count is required")
		}
	}
	return nil
}
