package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Fatal(msg string, args ...any)
	With(args ...any) Logger
	Sync() error
}

type ZapLogger struct {
	log *zap.SugaredLogger
}

// NewZapLogger builds a logger for the given level ("debug", "info", "warn",
// "error") and format ("json" or "console"). Output goes to stderr unless
// outputPaths are given.
func NewZapLogger(level, format string, outputPaths ...string) (Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.DisableStacktrace = true
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}
	cfg.OutputPaths = outputPaths
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "t"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log: logger.Sugar()}, nil
}

// NewFromZap wraps an existing zap logger.
func NewFromZap(logger *zap.Logger) Logger {
	return &ZapLogger{log: logger.Sugar()}
}

func (zl *ZapLogger) Debug(msg string, args ...any) {
	zl.log.Debugw(msg, args...)
}

func (zl *ZapLogger) Info(msg string, args ...any) {
	zl.log.Infow(msg, args...)
}

func (zl *ZapLogger) Warn(msg string, args ...any) {
	zl.log.Warnw(msg, args...)
}

func (zl *ZapLogger) Error(msg string, args ...any) {
	zl.log.Errorw(msg, args...)
}

func (zl *ZapLogger) Fatal(msg string, args ...any) {
	zl.log.Errorw(msg, args...)
	_ = zl.log.Sync()
	os.Exit(1)
}

func (zl *ZapLogger) With(args ...any) Logger {
	return &ZapLogger{log: zl.log.With(args...)}
}

func (zl *ZapLogger) Sync() error {
	return zl.log.Sync()
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &ZapLogger{log: zap.NewNop().Sugar()}
}
