package telemetry

import sdktrace "go.opentelemetry.io/otel/sdk/trace"

// Config holds configuration for the tracer
type Config struct {
	ServiceName    string
	ServiceVersion string

	// Enabled false installs a noop provider.
	Enabled bool

	// Endpoint is the OTLP/HTTP collector host:port. When empty, spans
	// are sampled and recorded but never leave the process.
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of check runs traced, 0.0 to 1.0.
	SampleRate float64
}

// DefaultConfig returns tracing disabled.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "apidrift",
		ServiceVersion: "dev",
		SampleRate:     1.0,
	}
}

func (c Config) sampler() sdktrace.Sampler {
	if c.SampleRate < 1.0 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRate))
	}
	return sdktrace.AlwaysSample()
}
