// Package logger defines the minimal structured logging contract used across
// payrelay. Callers pass a field map per entry; implementations decide how to
// render it.
package logger

// Logger is the logging interface accepted by every payrelay component.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// NoopLogger drops every entry. It is the default when no logger is injected.
type NoopLogger struct{}

func (NoopLogger) Debug(string, map[string]any) {}
func (NoopLogger) Info(string, map[string]any)  {}
func (NoopLogger) Warn(string, map[string]any)  {}
func (NoopLogger) Error(string, map[string]any) {}
