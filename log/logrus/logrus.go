// Package logrus adapts a logrus entry to hashcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/hashcache"
)

var _ hashcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every record with component=hashcache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "hashcache")}
}

func (l LogrusLogger) Debug(msg string, f hashcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f hashcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f hashcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f hashcache.Fields) { l.with(f).Error(msg) }

// with moves an "err" field to logrus' error key.
func (l LogrusLogger) with(f hashcache.Fields) *logrus.Entry {
	e := l.E
	if len(f) == 0 {
		return e
	}
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		fields[k] = v
	}
	return e.WithFields(fields)
}
