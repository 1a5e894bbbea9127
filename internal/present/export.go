package present

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/report"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON       Format = "json"
	FormatJSONPretty Format = "json-pretty"
	FormatNDJSON     Format = "ndjson"
	FormatYAML       Format = "yaml"
	FormatSARIF      Format = "sarif"
	FormatText       Format = "text"
)

// ReportFormats are the encodings a drift report can be exported in.
var ReportFormats = []string{
	string(FormatJSON),
	string(FormatJSONPretty),
	string(FormatNDJSON),
	string(FormatYAML),
	string(FormatSARIF),
}

// ParseFormat accepts any known format; empty means json-pretty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case "":
		return FormatJSONPretty, nil
	case FormatJSON, FormatJSONPretty, FormatNDJSON, FormatYAML, FormatSARIF, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("unknown format: %s", s)
}

// Formatter writes one value in a fixed encoding.
type Formatter interface {
	Format(data any) error
}

// FormatterOptions configure formatters.
type FormatterOptions struct {
	// Writer defaults to os.Stdout.
	Writer io.Writer
	// SARIF is used only by the sarif formatter.
	SARIF drift.SARIFOptions
}

// NewFormatter creates a formatter for format.
func NewFormatter(format Format, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case FormatJSON:
		return &JSONFormatter{opts: opts}, nil
	case FormatJSONPretty, "":
		return &JSONFormatter{opts: opts, indent: true}, nil
	case FormatNDJSON:
		return &NDJSONFormatter{opts: opts}, nil
	case FormatYAML:
		return &YAMLFormatter{opts: opts}, nil
	case FormatSARIF:
		return &SARIFFormatter{opts: opts}, nil
	case FormatText:
		return &TextFormatter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// JSONFormatter writes a single JSON document.
type JSONFormatter struct {
	opts   *FormatterOptions
	indent bool
}

func (f *JSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	if f.indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// recorder is implemented by values that split into line records.
type recorder interface {
	Records() []any
}

// NDJSONFormatter writes one compact JSON value per line: one per record
// for values that have records, otherwise the whole value.
type NDJSONFormatter struct {
	opts *FormatterOptions
}

func (f *NDJSONFormatter) Format(data any) error {
	encoder := json.NewEncoder(f.opts.Writer)
	r, ok := data.(recorder)
	if !ok {
		return encoder.Encode(data)
	}
	for _, rec := range r.Records() {
		if err := encoder.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// YAMLFormatter writes YAML with two-space indentation.
type YAMLFormatter struct {
	opts *FormatterOptions
}

func (f *YAMLFormatter) Format(data any) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

// SARIFFormatter converts reports to SARIF 2.1.0.
type SARIFFormatter struct {
	opts *FormatterOptions
}

func (f *SARIFFormatter) Format(data any) error {
	var r *drift.Report
	switch v := data.(type) {
	case *drift.SARIF:
		return writeIndented(f.opts.Writer, v)
	case *drift.Report:
		r = v
	case *report.ReportV2:
		r = &v.Report
	case *Document:
		r = v.Flatten()
	default:
		return fmt.Errorf("sarif formatter cannot encode %T", data)
	}
	return writeIndented(f.opts.Writer, r.ToSARIF(f.opts.SARIF))
}

func writeIndented(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// TextFormatter writes values that render themselves as text.
type TextFormatter struct {
	opts *FormatterOptions
}

func (f *TextFormatter) Format(data any) error {
	switch v := data.(type) {
	case string:
		_, err := fmt.Fprintln(f.opts.Writer, v)
		return err
	case fmt.Stringer:
		_, err := fmt.Fprintln(f.opts.Writer, v.String())
		return err
	default:
		return fmt.Errorf("text formatter cannot render %T", data)
	}
}

var (
	_ Formatter = (*JSONFormatter)(nil)
	_ Formatter = (*NDJSONFormatter)(nil)
	_ Formatter = (*YAMLFormatter)(nil)
	_ Formatter = (*SARIFFormatter)(nil)
	_ Formatter = (*TextFormatter)(nil)
)
