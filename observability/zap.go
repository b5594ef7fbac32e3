package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct{ l *zap.Logger }

// NewZapLogger adapts a zap logger to Logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return zapLogger{l: l}
}

// NewProductionLogger builds a JSON zap logger at the given level
// ("debug", "info", "warn", "error").
func NewProductionLogger(level string) (Logger, *zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level %q: %w", level, err)
		}
		cfg.Level = lvl
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	z, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return NewZapLogger(z), z, nil
}

func (z zapLogger) Debug(msg string, fields ...Field) { z.l.Debug(msg, zapFields(fields)...) }
func (z zapLogger) Info(msg string, fields ...Field)  { z.l.Info(msg, zapFields(fields)...) }
func (z zapLogger) Warn(msg string, fields ...Field)  { z.l.Warn(msg, zapFields(fields)...) }
func (z zapLogger) Error(msg string, fields ...Field) { z.l.Error(msg, zapFields(fields)...) }
func (z zapLogger) With(fields ...Field) Logger       { return zapLogger{l: z.l.With(zapFields(fields)...)} }

func zapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value().(type) {
		case string:
			out = append(out, zap.String(f.Key(), v))
		case int:
			out = append(out, zap.Int(f.Key(), v))
		case error:
			out = append(out, zap.NamedError(f.Key(), v))
		case nil:
			out = append(out, zap.Skip())
		default:
			out = append(out, zap.Any(f.Key(), v))
		}
	}
	return out
}
