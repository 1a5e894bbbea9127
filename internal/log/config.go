package log

import (
	"io"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format int

const (
	FormatJSON Format = iota
	FormatText
)

func (f Format) String() string {
	if f == FormatText {
		return "text"
	}
	return "json"
}

// ParseFormat maps "text" and "console" to FormatText and everything else
// to FormatJSON.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// Config holds configuration for the logger
type Config struct {
	Level  Level
	Format Format

	// Writer defaults to stderr. Reports own stdout.
	Writer io.Writer

	AddSource bool

	// ServiceName and ServiceVersion are attached to every record when
	// ServiceName is set.
	ServiceName    string
	ServiceVersion string
}

func (c Config) writer() io.Writer {
	if c.Writer == nil {
		return os.Stderr
	}
	return c.Writer
}

// DefaultConfig logs warnings and errors as text to stderr.
func DefaultConfig() Config {
	return Config{
		Level:          LevelWarn,
		Format:         FormatText,
		ServiceName:    "apidrift",
		ServiceVersion: "dev",
	}
}

// FromSettings builds a Config from the textual values of the logging
// section of the configuration file. Verbose forces debug level and adds
// source locations.
func FromSettings(level, format string, verbose bool) Config {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	cfg.Format = ParseFormat(format)
	if verbose {
		cfg.Level = LevelDebug
		cfg.AddSource = true
	}
	return cfg
}
