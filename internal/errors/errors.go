package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Traffic input errors (TRAFFIC-001 to TRAFFIC-099)
	ErrCodeTrafficNotFound    ErrorCode = "TRAFFIC-001"
	ErrCodeTrafficParse       ErrorCode = "TRAFFIC-002"
	ErrCodeTrafficNotArray    ErrorCode = "TRAFFIC-003"
	ErrCodeTrafficEmpty       ErrorCode = "TRAFFIC-004"
	ErrCodeTrafficInvalidItem ErrorCode = "TRAFFIC-005"

	// Contract errors (SPEC-001 to SPEC-099)
	ErrCodeSpecNotFound ErrorCode = "SPEC-001"
	ErrCodeSpecInvalid  ErrorCode = "SPEC-002"

	// Storage errors (STORAGE-001 to STORAGE-099)
	ErrCodeStorageWrite   ErrorCode = "STORAGE-001"
	ErrCodeStorageRead    ErrorCode = "STORAGE-002"
	ErrCodeStorageCorrupt ErrorCode = "STORAGE-003"
	ErrCodeRunNotFound    ErrorCode = "STORAGE-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigRead    ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid ErrorCode = "CONFIG-002"

	// Usage errors (USAGE-001 to USAGE-099)
	ErrCodeUsageMissingFlag ErrorCode = "USAGE-001"
	ErrCodeUsageInvalidFlag ErrorCode = "USAGE-002"
	ErrCodeUsageArgs        ErrorCode = "USAGE-003"

	// Drift outcome (DRIFT-001 to DRIFT-099)
	ErrCodeDriftDetected ErrorCode = "DRIFT-001"
)

// Category returns the prefix of the code, e.g. "TRAFFIC" for "TRAFFIC-002".
func (c ErrorCode) Category() string {
	s := string(c)
	if i := strings.IndexByte(s, '-'); i >= 0 {
		return s[:i]
	}
	return s
}

// Error represents an enhanced error with code, suggestions, and documentation
type Error struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)

	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			fmt.Fprintf(&b, "\n  • %s", suggestion)
		}
	}

	if e.DocsURL != "" {
		fmt.Fprintf(&b, "\n\nDocumentation: %s", e.DocsURL)
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new Error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *Error) WithDocs(url string) *Error {
	e.DocsURL = url
	return e
}

// AsError returns the first coded error in err's chain.
func AsError(err error) (*Error, bool) {
	var coded *Error
	if stderrors.As(err, &coded) {
		return coded, true
	}
	return nil, false
}

// CodeOf returns the code of the first coded error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	if coded, ok := AsError(err); ok {
		return coded.Code, true
	}
	return "", false
}

// Common error constructors for frequently used errors

// NewTrafficParseError reports traffic input that is not valid JSON.
func NewTrafficParseError(cause error) *Error {
	return Wrap(ErrCodeTrafficParse, "failed to parse JSON", cause).
		WithSuggestion("Check that the traffic file is a single JSON document")
}

// NewTrafficNotArrayError reports traffic input whose top level is not an array.
func NewTrafficNotArrayError() *Error {
	return New(ErrCodeTrafficNotArray, "expected JSON array of traffic samples").
		WithSuggestion("Wrap captured samples in a top-level JSON array")
}

// NewTrafficEmptyError reports an empty sample array.
func NewTrafficEmptyError() *Error {
	return New(ErrCodeTrafficEmpty, "traffic samples array is empty").
		WithSuggestion("Capture at least one request/response pair before running a check")
}

// NewSampleInvalidError reports one malformed sample, naming its index.
func NewSampleInvalidError(index int, detail string) *Error {
	return New(ErrCodeTrafficInvalidItem, fmt.Sprintf("sample at index %d: %s", index, detail))
}

// NewSpecNotFoundError creates a contract file not found error
func NewSpecNotFoundError(path string) *Error {
	return New(ErrCodeSpecNotFound, fmt.Sprintf("OpenAPI document not found: %s", path)).
		WithSuggestion("Check if the file path is correct")
}

// NewSpecInvalidError creates a contract parse/validation error
func NewSpecInvalidError(path string, cause error) *Error {
	return Wrap(ErrCodeSpecInvalid, fmt.Sprintf("invalid OpenAPI document: %s", path), cause).
		WithSuggestion("Validate the document against the OpenAPI 3 schema").
		WithSuggestion("Ensure the file is valid JSON or YAML")
}

// NewRunNotFoundError reports a run ID with no stored report.
func NewRunNotFoundError(runID string) *Error {
	return New(ErrCodeRunNotFound, fmt.Sprintf("no stored report for run %s", runID)).
		WithSuggestion("List recorded runs: apidrift history list --service-name <name> --environment <env>")
}

// NewMissingFlagError reports a flag that is required in the current mode.
func NewMissingFlagError(flag, reason string) *Error {
	return New(ErrCodeUsageMissingFlag, fmt.Sprintf("required flag --%s not set", flag)).
		WithSuggestion(reason)
}

// NewInvalidFlagError reports a flag value outside its allowed set.
func NewInvalidFlagError(flag, value string, allowed []string) *Error {
	return New(ErrCodeUsageInvalidFlag, fmt.Sprintf("invalid value %q for --%s", value, flag)).
		WithSuggestion(fmt.Sprintf("Use one of: %s", strings.Join(allowed, ", ")))
}

// NewDriftDetectedError is returned when findings exist and the caller asked to fail on them.
func NewDriftDetectedError(count int) *Error {
	return New(ErrCodeDriftDetected, fmt.Sprintf("drift detected: %d finding(s) reported", count))
}
