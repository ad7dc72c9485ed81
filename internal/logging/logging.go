// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides structured, leveled logging for the link manager.
// It wraps zap behind a small API so call sites stay terse:
//
//	logging.WithComponent("activation").Info("Associated", "essid", essid)
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a log severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Config controls logger construction.
type Config struct {
	Level  Level
	JSON   bool
	Syslog SyslogConfig
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Syslog: DefaultSyslogConfig(),
	}
}

// Logger is a leveled logger carrying structured context.
type Logger struct {
	z *zap.SugaredLogger
}

// New creates a Logger from the given config.
func New(cfg Config) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.Lock(os.Stderr)}
	if cfg.Syslog.Enabled {
		if w, err := NewSyslogWriter(cfg.Syslog); err == nil {
			sinks = append(sinks, zapcore.AddSync(w))
		}
	}

	core := zapcore.NewCore(enc, zapcore.NewMultiWriteSyncer(sinks...), cfg.Level.zapLevel())
	return &Logger{z: zap.New(core).Sugar()}
}

var (
	defaultMu     sync.RWMutex
	defaultLogger *Logger
)

// Default returns the process-wide logger, creating it on first use.
func Default() *Logger {
	defaultMu.RLock()
	l := defaultLogger
	defaultMu.RUnlock()
	if l != nil {
		return l
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(DefaultConfig())
	}
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// WithComponent returns the default logger scoped to a component name.
func WithComponent(name string) *Logger {
	return Default().WithComponent(name)
}

// WithComponent returns a child logger scoped to a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{z: l.z.With("component", name)}
}

// WithError returns a child logger carrying an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{z: l.z.With("error", err)}
}

// WithFields returns a child logger carrying the given key/value pairs.
func (l *Logger) WithFields(kv ...any) *Logger {
	return &Logger{z: l.z.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.z.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any) { l.z.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any) { l.z.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.z.Errorw(msg, kv...) }

// Package-level shortcuts on the default logger.
func Debug(msg string, kv ...any) { Default().Debug(msg, kv...) }
func Info(msg string, kv ...any) { Default().Info(msg, kv...) }
func Warn(msg string, kv ...any) { Default().Warn(msg, kv...) }
func Error(msg string, kv ...any) { Default().Error(msg, kv...) }
