// Package zap adapts a zap logger to streamcache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/streamcache"
)

var _ streamcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "streamcache".
func New(l *zap.Logger) Logger { return Logger{L: l.Named("streamcache")} }

func (z Logger) Debug(msg string, f streamcache.Fields) { z.log(zapcore.DebugLevel, msg, f) }
func (z Logger) Info(msg string, f streamcache.Fields)  { z.log(zapcore.InfoLevel, msg, f) }
func (z Logger) Warn(msg string, f streamcache.Fields)  { z.log(zapcore.WarnLevel, msg, f) }
func (z Logger) Error(msg string, f streamcache.Fields) { z.log(zapcore.ErrorLevel, msg, f) }

func (z Logger) log(level zapcore.Level, msg string, f streamcache.Fields) {
	ce := z.L.Check(level, msg)
	if ce == nil {
		return
	}
	ce.Write(fields(f)...)
}

// fields sorts keys so output is stable across runs.
func fields(f streamcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
