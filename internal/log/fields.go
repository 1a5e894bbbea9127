package log

// Attribute keys shared by every package that logs about a check run.
const (
	KeyService     = "service_name"
	KeyEnvironment = "environment"
	KeyRunID       = "run_id"
	KeyEndpoint    = "endpoint"
	KeyStage       = "stage"
	KeyPath        = "path"
)

// ForRun scopes the logger to one service and environment history.
func (l *Logger) ForRun(service, environment string) *Logger {
	return l.With(KeyService, service, KeyEnvironment, environment)
}

// ForEndpoint scopes the logger to one "METHOD /path" endpoint key.
func (l *Logger) ForEndpoint(key string) *Logger {
	return l.With(KeyEndpoint, key)
}

// ForStage scopes the logger to a pipeline stage such as "detect".
func (l *Logger) ForStage(stage string) *Logger {
	return l.With(KeyStage, stage)
}
