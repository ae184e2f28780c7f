package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is a Logger backed by go.uber.org/zap, offered as an
// alternative to the console-slog backend for deployments that want
// structured JSON logs shipped to an aggregator rather than a console.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewZap creates a zap-backed Logger writing JSON-encoded records to
// output (os.Stdout if nil).
func NewZap(level LogLevel, output io.Writer) Logger {
	if output == nil {
		output = os.Stdout
	}

	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(output),
		atomicLevel,
	)

	return &ZapLogger{
		sugar: zap.New(core).Sugar(),
		level: atomicLevel,
	}
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) { l.sugar.Debugw(msg, keysAndValues...) }
func (l *ZapLogger) Info(msg string, keysAndValues ...any)   { l.sugar.Infow(msg, keysAndValues...) }
func (l *ZapLogger) Warn(msg string, keysAndValues ...any)   { l.sugar.Warnw(msg, keysAndValues...) }
func (l *ZapLogger) Error(msg string, keysAndValues ...any)  { l.sugar.Errorw(msg, keysAndValues...) }

func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.sugar.Errorw(msg, keysAndValues...)
	os.Exit(1)
}

func (l *ZapLogger) With(keyValues ...any) Logger {
	return &ZapLogger{sugar: l.sugar.With(keyValues...), level: l.level}
}

func (l *ZapLogger) Level() LogLevel {
	levelMap := map[zapcore.Level]LogLevel{
		zapcore.DebugLevel: DebugLevel,
		zapcore.InfoLevel:  InfoLevel,
		zapcore.WarnLevel:  WarnLevel,
		zapcore.ErrorLevel: ErrorLevel,
	}
	if lv, ok := levelMap[l.level.Level()]; ok {
		return lv
	}
	return ErrorLevel
}

func (l *ZapLogger) SetLevel(level LogLevel) {
	l.level.SetLevel(toZapLevel(level))
}

func toZapLevel(level LogLevel) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
