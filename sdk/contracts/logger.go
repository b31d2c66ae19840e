package contracts

import "time"

// LogLevel represents the severity level for logging, in increasing
// order of severity so SetLevel can do a plain integer comparison.
type LogLevel int

const (
	// DebugLevel indicates debug messages useful for troubleshooting.
	DebugLevel LogLevel = iota
	// InfoLevel indicates informational progress messages.
	InfoLevel
	// WarnLevel indicates a degraded-but-recovered condition, such as a
	// realtime try-lock failure or a clamped MIDI timestamp.
	WarnLevel
	// ErrorLevel indicates a failed operation the caller can observe via
	// a return value or a host callback.
	ErrorLevel
	// FatalLevel indicates an unrecoverable condition.
	FatalLevel
)

// Field is a single structured key/value pair attached to a log line.
type Field interface {
	Bool(key string, val bool) Field
	Int(key string, val int) Field
	Uint32(key string, val uint32) Field
	Uint64(key string, val uint64) Field
	Uint8(key string, val uint8) Field
	Float64(key string, val float64) Field
	String(key string, val string) Field
	Duration(key string, val time.Duration) Field
	Error(key string, val error) Field
}

// Logger is the narrow logging capability every enginecore component
// depends on, never a concrete backend. internal/logging supplies
// zap- and charmbracelet/log-backed implementations.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	Field() Field
	SetLevel(level LogLevel)

	// With returns a child logger that always includes the given
	// fields, mirroring zap.Logger.With.
	With(fields ...Field) Logger
}
