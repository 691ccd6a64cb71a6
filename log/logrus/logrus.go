// Package logrus adapts a logrus entry to streamcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/streamcache"
)

var _ streamcache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l, tagging every entry with component=streamcache.
func New(l *logrus.Logger) Logger {
	return Logger{E: l.WithField("component", "streamcache")}
}

func (l Logger) Debug(msg string, f streamcache.Fields) { l.log(logrus.DebugLevel, msg, f) }
func (l Logger) Info(msg string, f streamcache.Fields)  { l.log(logrus.InfoLevel, msg, f) }
func (l Logger) Warn(msg string, f streamcache.Fields)  { l.log(logrus.WarnLevel, msg, f) }
func (l Logger) Error(msg string, f streamcache.Fields) { l.log(logrus.ErrorLevel, msg, f) }

func (l Logger) log(level logrus.Level, msg string, f streamcache.Fields) {
	// skip the field copy on hot read paths
	if !l.E.Logger.IsLevelEnabled(level) {
		return
	}
	e := l.E
	if len(f) > 0 {
		fields := make(logrus.Fields, len(f))
		for k, v := range f {
			// "err" is the cache's convention; logrus renders errors under ErrorKey
			if k == "err" {
				k = logrus.ErrorKey
			}
			fields[k] = v
		}
		e = e.WithFields(fields)
	}
	e.Log(level, msg)
}
