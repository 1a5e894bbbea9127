// Package config loads apidrift settings from a YAML file, applies
// APIDRIFT_* environment overrides and validates the result.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/apidrift/internal/errors"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = ".apidrift.yaml"

// Config is the complete apidrift configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	History   HistoryConfig   `yaml:"history"`
	Filter    FilterConfig    `yaml:"filter"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type StorageConfig struct {
	Dir             string `yaml:"dir" validate:"required"`
	MaxIndexEntries int    `yaml:"max_index_entries" validate:"gte=1,lte=10000"`
	CacheSize       int    `yaml:"cache_size" validate:"gte=1"`
}

type HistoryConfig struct {
	Lookback int `yaml:"lookback" validate:"gte=1,lte=100"`
}

type FilterConfig struct {
	MinSeverity    string  `yaml:"min_severity" validate:"oneof=low medium high"`
	MinSampleCount int     `yaml:"min_sample_count" validate:"gte=0"`
	MinConsistency float64 `yaml:"min_consistency" validate:"gte=0,lte=100"`
}

type OutputConfig struct {
	Format  string `yaml:"format" validate:"oneof=json json-pretty ndjson yaml sarif"`
	Density string `yaml:"density" validate:"oneof=verbose compact"`
	GroupBy string `yaml:"group_by" validate:"oneof=endpoint field status none"`
	NoColor bool   `yaml:"no_color"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json console"`
}

type MetricsConfig struct {
	// Textfile is a Prometheus textfile-collector path written after
	// each check. Empty disables it.
	Textfile string `yaml:"textfile,omitempty"`
}

type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint,omitempty" validate:"required_if=Enabled true,omitempty,hostname_port"`
	Insecure   bool    `yaml:"insecure,omitempty"`
	SampleRate float64 `yaml:"sample_rate" validate:"gte=0,lte=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:             ".drift-reports",
			MaxIndexEntries: 100,
			CacheSize:       16,
		},
		History: HistoryConfig{Lookback: 5},
		Filter: FilterConfig{
			MinSeverity:    "medium",
			MinSampleCount: 5,
			MinConsistency: 10,
		},
		Output: OutputConfig{
			Format:  "json-pretty",
			Density: "verbose",
			GroupBy: "none",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Endpoint:   "localhost:4318",
			SampleRate: 1.0,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates. A missing file is only an error when required is set.
func Load(path string, required bool) (*Config, error) {
	cfg, err := Read(path, required)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes path over the defaults without environment overrides or
// validation, for commands that edit the file itself.
func Read(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to parse config file "+path, err).
				WithSuggestion("Run 'apidrift config init --force' to write a valid starting point")
		}
	case os.IsNotExist(err) && !required:
	default:
		return nil, errors.Wrap(errors.ErrCodeConfigRead, "failed to read config file "+path, err)
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "invalid configuration", err)
	}

	e := errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %d problem(s)", len(verrs)))
	for _, fe := range verrs {
		e.WithSuggestion(describe(fe))
	}
	return e
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got %v)", field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port (got %v)", field, fe.Value())
	default:
		return fmt.Sprintf("%s fails %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
}

// Save writes c as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Marshal encodes c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
