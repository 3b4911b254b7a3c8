// Package log provides the structured key/value logger used across the
// application. It is a thin layer over zap so that call sites read as
// log.Info("msg", "key", value).
package log

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a leveled key/value logger. A nil *Logger is not valid; use
// Nop for a silent one.
type Logger struct {
	s *zap.SugaredLogger
}

// Options configures New.
type Options struct {
	// Level is one of "debug", "info", "warn" or "error". Default "info".
	Level string
	// File, if set, receives the log stream with size-based rotation in
	// addition to stderr.
	File string
	// MaxSizeMB, MaxBackups and MaxAgeDays tune rotation of File.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a JSON logger writing to stderr and, optionally, a rotated file.
func New(opts Options) *Logger {
	var w io.Writer = os.Stderr
	if opts.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 20),
			MaxBackups: orDefault(opts.MaxBackups, 5),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
		})
	}
	return NewWriter(w, opts.Level)
}

// NewWriter builds a JSON logger writing to w.
func NewWriter(w io.Writer, level string) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), parseLevel(level))
	return &Logger{s: zap.New(core).Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{s: l.s.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }

func (l *Logger) Info(msg string, kv ...any) { l.s.Infow(msg, kv...) }

func (l *Logger) Warn(msg string, kv ...any) { l.s.Warnw(msg, kv...) }

// Error logs msg at error level with err prepended to the key/value list.
func (l *Logger) Error(msg string, err error, kv ...any) {
	l.s.Errorw(msg, append([]any{"err", err}, kv...)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error { return l.s.Sync() }

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
