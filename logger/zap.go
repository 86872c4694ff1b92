package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap sugared logger to the Logger interface.
type ZapLogger struct {
	log *zap.SugaredLogger
}

// NewZapLogger builds a production zap logger at the given level. Unknown
// levels fall back to info.
func NewZapLogger(level string) Logger {
	cfg := zap.NewProductionConfig()

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	log, _ := cfg.Build()
	return &ZapLogger{log: log.Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(log *zap.Logger) Logger {
	return &ZapLogger{log: log.Sugar()}
}

func (z *ZapLogger) Debug(msg string, kv ...any) { z.log.Debugw(msg, kv...) }
func (z *ZapLogger) Info(msg string, kv ...any)  { z.log.Infow(msg, kv...) }
func (z *ZapLogger) Warn(msg string, kv ...any)  { z.log.Warnw(msg, kv...) }
func (z *ZapLogger) Error(msg string, kv ...any) { z.log.Errorw(msg, kv...) }
