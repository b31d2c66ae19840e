package logging

import (
	"os"
	"time"

	charm "github.com/charmbracelet/log"
	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// charmField accumulates into a plain key/value pair; charmbracelet/log
// takes logger.With(key, val, key, val, ...) rather than a Field type,
// so the adapter just remembers the pair and flattens it at call time.
type charmField struct {
	key string
	val any
}

func (charmField) Bool(key string, val bool) contracts.Field       { return charmField{key, val} }
func (charmField) Int(key string, val int) contracts.Field         { return charmField{key, val} }
func (charmField) Uint32(key string, val uint32) contracts.Field   { return charmField{key, val} }
func (charmField) Uint64(key string, val uint64) contracts.Field   { return charmField{key, val} }
func (charmField) Uint8(key string, val uint8) contracts.Field     { return charmField{key, val} }
func (charmField) Float64(key string, val float64) contracts.Field { return charmField{key, val} }
func (charmField) String(key string, val string) contracts.Field   { return charmField{key, val} }
func (charmField) Duration(key string, val time.Duration) contracts.Field {
	return charmField{key, val}
}
func (charmField) Error(key string, val error) contracts.Field { return charmField{key, val} }

// CharmLogger is an alternate contracts.Logger backend over
// github.com/charmbracelet/log, pulled in from the doismellburning
// sample's primary logging stack to demonstrate that the Logger
// capability is genuinely pluggable rather than zap-only.
type CharmLogger struct {
	l *charm.Logger
}

// NewCharmLogger builds a human-readable, timestamped logger to stderr.
func NewCharmLogger() *CharmLogger {
	l := charm.NewWithOptions(os.Stderr, charm.Options{
		ReportTimestamp: true,
		Level:           charm.InfoLevel,
	})
	return &CharmLogger{l: l}
}

func (c *CharmLogger) Debug(msg string, fields ...contracts.Field) { c.l.Debug(msg, flatten(fields)...) }
func (c *CharmLogger) Info(msg string, fields ...contracts.Field)  { c.l.Info(msg, flatten(fields)...) }
func (c *CharmLogger) Warn(msg string, fields ...contracts.Field)  { c.l.Warn(msg, flatten(fields)...) }
func (c *CharmLogger) Error(msg string, fields ...contracts.Field) { c.l.Error(msg, flatten(fields)...) }
func (c *CharmLogger) Fatal(msg string, fields ...contracts.Field) { c.l.Fatal(msg, flatten(fields)...) }

func (c *CharmLogger) Field() contracts.Field { return charmField{} }

func (c *CharmLogger) SetLevel(level contracts.LogLevel) {
	switch level {
	case contracts.DebugLevel:
		c.l.SetLevel(charm.DebugLevel)
	case contracts.WarnLevel:
		c.l.SetLevel(charm.WarnLevel)
	case contracts.ErrorLevel:
		c.l.SetLevel(charm.ErrorLevel)
	case contracts.FatalLevel:
		c.l.SetLevel(charm.FatalLevel)
	default:
		c.l.SetLevel(charm.InfoLevel)
	}
}

func (c *CharmLogger) With(fields ...contracts.Field) contracts.Logger {
	return &CharmLogger{l: c.l.With(flatten(fields)...)}
}

func flatten(fields []contracts.Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		cf, ok := f.(charmField)
		if !ok {
			continue
		}
		out = append(out, cf.key, cf.val)
	}
	return out
}

var _ contracts.Logger = (*CharmLogger)(nil)
