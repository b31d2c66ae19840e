package logging

import (
	"os"
	"time"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapField adapts contracts.Field onto a concrete zap.Field, matching
// the teacher's pattern of a fresh value per call (sdk/contracts's
// Field() builder).
type zapField struct{ f zap.Field }

func (zapField) Bool(key string, val bool) contracts.Field       { return zapField{zap.Bool(key, val)} }
func (zapField) Int(key string, val int) contracts.Field         { return zapField{zap.Int(key, val)} }
func (zapField) Uint32(key string, val uint32) contracts.Field   { return zapField{zap.Uint32(key, val)} }
func (zapField) Uint64(key string, val uint64) contracts.Field   { return zapField{zap.Uint64(key, val)} }
func (zapField) Uint8(key string, val uint8) contracts.Field     { return zapField{zap.Uint8(key, val)} }
func (zapField) Float64(key string, val float64) contracts.Field { return zapField{zap.Float64(key, val)} }
func (zapField) String(key string, val string) contracts.Field   { return zapField{zap.String(key, val)} }
func (zapField) Duration(key string, val time.Duration) contracts.Field {
	return zapField{zap.Duration(key, val)}
}
func (zapField) Error(key string, val error) contracts.Field {
	return zapField{zap.NamedError(key, val)}
}

// ZapLogger is the default contracts.Logger backend, matching the
// teacher's logger.NewZapLogger() call sites in
// sdk/midi/options_setup.go and example/simple_use.go.
type ZapLogger struct {
	l     *zap.Logger
	level zap.AtomicLevel
}

// NewZapLogger builds a production JSON logger to stderr at InfoLevel.
func NewZapLogger() *ZapLogger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.Lock(zapcore.AddSync(os.Stderr)), level)
	return &ZapLogger{l: zap.New(core), level: level}
}

func (z *ZapLogger) Debug(msg string, fields ...contracts.Field) { z.l.Debug(msg, toZap(fields)...) }
func (z *ZapLogger) Info(msg string, fields ...contracts.Field)  { z.l.Info(msg, toZap(fields)...) }
func (z *ZapLogger) Warn(msg string, fields ...contracts.Field)  { z.l.Warn(msg, toZap(fields)...) }
func (z *ZapLogger) Error(msg string, fields ...contracts.Field) { z.l.Error(msg, toZap(fields)...) }
func (z *ZapLogger) Fatal(msg string, fields ...contracts.Field) { z.l.Fatal(msg, toZap(fields)...) }

func (z *ZapLogger) Field() contracts.Field { return zapField{} }

func (z *ZapLogger) SetLevel(level contracts.LogLevel) {
	z.level.SetLevel(toZapLevel(level))
}

func (z *ZapLogger) With(fields ...contracts.Field) contracts.Logger {
	return &ZapLogger{l: z.l.With(toZap(fields)...), level: z.level}
}

func toZap(fields []contracts.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		if zf, ok := f.(zapField); ok {
			out = append(out, zf.f)
		}
	}
	return out
}

func toZapLevel(l contracts.LogLevel) zapcore.Level {
	switch l {
	case contracts.DebugLevel:
		return zapcore.DebugLevel
	case contracts.WarnLevel:
		return zapcore.WarnLevel
	case contracts.ErrorLevel:
		return zapcore.ErrorLevel
	case contracts.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

var _ contracts.Logger = (*ZapLogger)(nil)
