/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/exp/slices"
)

const (
	loggerNameSeparator = "."
	rootLoggerName      = "redeemverify"
)

// Logger provides logging API
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Infow(msg string, kvPairs ...interface{})
	Panic(args ...interface{})
	Panicf(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Named(name string) Logger
	With(args ...interface{}) Logger
	IsEnabledFor(level zapcore.Level) bool
}

// Config selects the level and the encoding of the process logger.
type Config struct {
	Level  string
	Format string
}

var (
	root  atomic.Pointer[zap.Logger]
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

func init() {
	l, err := build(Config{Format: "console"})
	if err != nil {
		panic(err)
	}
	root.Store(l)
}

// Init rebuilds the process logger. Loggers obtained earlier pick up the new configuration.
func Init(c Config) error {
	l, err := build(c)
	if err != nil {
		return err
	}
	if old := root.Swap(l); old != nil {
		_ = old.Sync()
	}
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = root.Load().Sync()
}

func build(c Config) (*zap.Logger, error) {
	if len(c.Level) != 0 {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, errors.Wrapf(err, "invalid log level [%s]", c.Level)
		}
		level.SetLevel(lvl)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	switch c.Format {
	case "", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, errors.Errorf("invalid log format [%s]", c.Format)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Named(rootLoggerName), nil
}

// MustGetLogger returns a logger named after the dot-joined non-empty parts.
func MustGetLogger(parts ...string) Logger {
	return &zapLogger{name: loggerName(parts...)}
}

func isEmptyString(s string) bool { return len(s) == 0 }

func loggerName(parts ...string) string {
	return strings.Join(slices.DeleteFunc(slices.Clone(parts), isEmptyString), loggerNameSeparator)
}

type sugared struct {
	base *zap.Logger
	s    *zap.SugaredLogger
}

// zapLogger resolves the current root lazily so package level loggers follow Init.
type zapLogger struct {
	name   string
	fields []interface{}
	cached atomic.Pointer[sugared]
}

func (l *zapLogger) sugar() *zap.SugaredLogger {
	base := root.Load()
	if c := l.cached.Load(); c != nil && c.base == base {
		return c.s
	}
	z := base
	if len(l.name) != 0 {
		z = z.Named(l.name)
	}
	s := z.Sugar().With(l.fields...)
	l.cached.Store(&sugared{base: base, s: s})
	return s
}

func (l *zapLogger) Debug(args ...interface{}) { l.sugar().Debug(args...) }
func (l *zapLogger) Debugf(format string, args ...interface{}) {
	l.sugar().Debugf(format, args...)
}
func (l *zapLogger) Error(args ...interface{}) { l.sugar().Error(args...) }
func (l *zapLogger) Errorf(format string, args ...interface{}) {
	l.sugar().Errorf(format, args...)
}
func (l *zapLogger) Fatal(args ...interface{}) { l.sugar().Fatal(args...) }
func (l *zapLogger) Fatalf(format string, args ...interface{}) {
	l.sugar().Fatalf(format, args...)
}
func (l *zapLogger) Info(args ...interface{}) { l.sugar().Info(args...) }
func (l *zapLogger) Infof(format string, args ...interface{}) {
	l.sugar().Infof(format, args...)
}
func (l *zapLogger) Infow(msg string, kvPairs ...interface{}) {
	l.sugar().Infow(msg, kvPairs...)
}
func (l *zapLogger) Panic(args ...interface{}) { l.sugar().Panic(args...) }
func (l *zapLogger) Panicf(format string, args ...interface{}) {
	l.sugar().Panicf(format, args...)
}
func (l *zapLogger) Warn(args ...interface{}) { l.sugar().Warn(args...) }
func (l *zapLogger) Warnf(format string, args ...interface{}) {
	l.sugar().Warnf(format, args...)
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{name: loggerName(l.name, name), fields: l.fields}
}

func (l *zapLogger) With(args ...interface{}) Logger {
	fields := make([]interface{}, 0, len(l.fields)+len(args))
	fields = append(fields, l.fields...)
	fields = append(fields, args...)
	return &zapLogger{name: l.name, fields: fields}
}

func (l *zapLogger) IsEnabledFor(lvl zapcore.Level) bool {
	return level.Enabled(lvl)
}
