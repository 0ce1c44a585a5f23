// Package logger declares the logging interface used across core packages.
// The zerolog-backed implementation lives in infra/logger; core code only
// ever sees this interface.
package logger

// Logger exposes printf-style logging at the usual severities.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw logs a message with structured fields.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
