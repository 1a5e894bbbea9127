package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/apidrift/internal/errors"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "APIDRIFT_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type binding struct {
	key  string // environment suffix
	path string // dotted YAML path
	set  func(c *Config, v string) error
}

func str(f func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*f(c) = v
		return nil
	}
}

func integer(f func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*f(c) = n
		return nil
	}
}

func float(f func(c *Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*f(c) = n
		return nil
	}
}

func boolean(f func(c *Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*f(c) = b
		return nil
	}
}

var bindings = []binding{
	{"STORAGE_DIR", "storage.dir", str(func(c *Config) *string { return &c.Storage.Dir })},
	{"STORAGE_MAX_INDEX_ENTRIES", "storage.max_index_entries", integer(func(c *Config) *int { return &c.Storage.MaxIndexEntries })},
	{"STORAGE_CACHE_SIZE", "storage.cache_size", integer(func(c *Config) *int { return &c.Storage.CacheSize })},
	{"HISTORY_LOOKBACK", "history.lookback", integer(func(c *Config) *int { return &c.History.Lookback })},
	{"FILTER_MIN_SEVERITY", "filter.min_severity", str(func(c *Config) *string { return &c.Filter.MinSeverity })},
	{"FILTER_MIN_SAMPLE_COUNT", "filter.min_sample_count", integer(func(c *Config) *int { return &c.Filter.MinSampleCount })},
	{"FILTER_MIN_CONSISTENCY", "filter.min_consistency", float(func(c *Config) *float64 { return &c.Filter.MinConsistency })},
	{"OUTPUT_FORMAT", "output.format", str(func(c *Config) *string { return &c.Output.Format })},
	{"OUTPUT_DENSITY", "output.density", str(func(c *Config) *string { return &c.Output.Density })},
	{"OUTPUT_GROUP_BY", "output.group_by", str(func(c *Config) *string { return &c.Output.GroupBy })},
	{"OUTPUT_NO_COLOR", "output.no_color", boolean(func(c *Config) *bool { return &c.Output.NoColor })},
	{"LOG_LEVEL", "logging.level", str(func(c *Config) *string { return &c.Logging.Level })},
	{"LOG_FORMAT", "logging.format", str(func(c *Config) *string { return &c.Logging.Format })},
	{"METRICS_TEXTFILE", "metrics.textfile", str(func(c *Config) *string { return &c.Metrics.Textfile })},
	{"TELEMETRY_ENABLED", "telemetry.enabled", boolean(func(c *Config) *bool { return &c.Telemetry.Enabled })},
	{"TELEMETRY_ENDPOINT", "telemetry.endpoint", str(func(c *Config) *string { return &c.Telemetry.Endpoint })},
	{"TELEMETRY_INSECURE", "telemetry.insecure", boolean(func(c *Config) *bool { return &c.Telemetry.Insecure })},
	{"TELEMETRY_SAMPLE_RATE", "telemetry.sample_rate", float(func(c *Config) *float64 { return &c.Telemetry.SampleRate })},
}

// EnvKeys lists every supported override variable.
func EnvKeys() []string {
	keys := make([]string, len(bindings))
	for i, b := range bindings {
		keys[i] = EnvPrefix + b.key
	}
	return keys
}

// Keys lists every settable dotted key.
func Keys() []string {
	keys := make([]string, len(bindings))
	for i, b := range bindings {
		keys[i] = b.path
	}
	return keys
}

// Set assigns a dotted key such as "history.lookback" from its textual
// value. The result is not validated.
func (c *Config) Set(key, value string) error {
	for _, b := range bindings {
		if b.path != key {
			continue
		}
		if err := b.set(c, value); err != nil {
			return errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid value for %s", key), err)
		}
		return nil
	}
	return errors.New(errors.ErrCodeConfigInvalid, "unknown configuration key: "+key).
		WithSuggestion("Known keys: " + strings.Join(Keys(), ", "))
}

// Get returns the textual value of a dotted key.
func (c *Config) Get(key string) (string, error) {
	if !slices.Contains(Keys(), key) {
		return "", errors.New(errors.ErrCodeConfigInvalid, "unknown configuration key: "+key)
	}
	data, err := c.Marshal()
	if err != nil {
		return "", err
	}
	var tree map[string]map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return "", fmt.Errorf("failed to decode config: %w", err)
	}
	section, field, _ := strings.Cut(key, ".")
	v, ok := tree[section][field]
	if !ok {
		// omitempty fields
		return "", nil
	}
	return fmt.Sprint(v), nil
}

// ApplyEnv overrides fields from APIDRIFT_* variables. NO_COLOR, when set
// to anything, disables colour.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for _, b := range bindings {
		v, ok := lookup(EnvPrefix + b.key)
		if !ok || v == "" {
			continue
		}
		if err := b.set(c, v); err != nil {
			return errors.Wrap(errors.ErrCodeConfigInvalid, fmt.Sprintf("invalid value for %s%s", EnvPrefix, b.key), err)
		}
	}
	if _, ok := lookup("NO_COLOR"); ok {
		c.Output.NoColor = true
	}
	return nil
}
