package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// StandardLogger is a dependency-free contracts.Logger, adapted from
// the teacher's console logger: it exists so enginecore always has a
// zero-import fallback alongside the zap and charmbracelet/log
// backends, the way the teacher keeps StandardLogger next to
// NewZapLogger.
type StandardLogger struct {
	mu       sync.RWMutex
	logLevel contracts.LogLevel
	out      *os.File
	fields   []contracts.Field
}

// NewStandardLogger logs to stderr at InfoLevel.
func NewStandardLogger() *StandardLogger {
	return &StandardLogger{logLevel: contracts.InfoLevel, out: os.Stderr}
}

func (s *StandardLogger) Debug(msg string, fields ...contracts.Field) { s.log(contracts.DebugLevel, "DEBUG", msg, fields) }
func (s *StandardLogger) Info(msg string, fields ...contracts.Field)  { s.log(contracts.InfoLevel, "INFO", msg, fields) }
func (s *StandardLogger) Warn(msg string, fields ...contracts.Field)  { s.log(contracts.WarnLevel, "WARN", msg, fields) }
func (s *StandardLogger) Error(msg string, fields ...contracts.Field) { s.log(contracts.ErrorLevel, "ERROR", msg, fields) }
func (s *StandardLogger) Fatal(msg string, fields ...contracts.Field) {
	s.log(contracts.FatalLevel, "FATAL", msg, fields)
	os.Exit(1)
}

func (s *StandardLogger) Field() contracts.Field { return simpleField{} }

func (s *StandardLogger) SetLevel(level contracts.LogLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLevel = level
}

func (s *StandardLogger) With(fields ...contracts.Field) contracts.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	child := &StandardLogger{logLevel: s.logLevel, out: s.out}
	child.fields = append(append([]contracts.Field(nil), s.fields...), fields...)
	return child
}

func (s *StandardLogger) log(level contracts.LogLevel, levelStr, msg string, fields []contracts.Field) {
	s.mu.RLock()
	skip := s.logLevel > level
	out := s.out
	base := s.fields
	s.mu.RUnlock()
	if skip {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "unknown", 0
	} else {
		file = filepath.Base(file)
	}

	all := append(append([]contracts.Field(nil), base...), fields...)
	timestamp := time.Now().UTC().Format(time.RFC3339)
	fmt.Fprintf(out, "%s [%s] %s:%d: %s%s\n", timestamp, levelStr, file, line, msg, formatFields(all))
}

func formatFields(fields []contracts.Field) string {
	if len(fields) == 0 {
		return ""
	}
	var b []byte
	b = append(b, " {"...)
	for i, f := range fields {
		sf, ok := f.(simpleField)
		if !ok {
			continue
		}
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, fmt.Sprintf("%s=%v", sf.key, sf.value)...)
	}
	b = append(b, '}')
	return string(b)
}

var _ contracts.Logger = (*StandardLogger)(nil)
