// Package logging provides the Logger abstraction shared by every
// long-lived activity in the aggregator: the acceptor, the worker and the
// checkpointer.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every component in this module depends on.
// Handlers never call logrus directly so the backing implementation can be
// swapped in tests without touching call sites.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
}

// logrusLogger backs Logger with a *logrus.Logger. It replaces the
// std-log-backed DefaultLogger the core protocol used to ship with a
// structured logger that still honors the same interface shape.
type logrusLogger struct {
	*logrus.Logger
	component string
}

// New builds a Logger that tags every line with component, e.g.
// "acceptor", "worker", "checkpointer".
func New(component string) Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &logrusLogger{Logger: base, component: component}
}

// NewDebug is New with debug-level verbosity enabled, used by the CLI's
// --debug flag.
func NewDebug(component string) Logger {
	l := New(component).(*logrusLogger)
	l.SetLevel(logrus.DebugLevel)
	return l
}

func (l *logrusLogger) entry() *logrus.Entry {
	return l.WithField("component", l.component)
}

func (l *logrusLogger) Info(v ...interface{})                 { l.entry().Info(v...) }
func (l *logrusLogger) Infof(format string, v ...interface{})  { l.entry().Infof(format, v...) }
func (l *logrusLogger) Warn(v ...interface{})                  { l.entry().Warn(v...) }
func (l *logrusLogger) Warnf(format string, v ...interface{})  { l.entry().Warnf(format, v...) }
func (l *logrusLogger) Error(v ...interface{})                 { l.entry().Error(v...) }
func (l *logrusLogger) Errorf(format string, v ...interface{}) { l.entry().Errorf(format, v...) }
func (l *logrusLogger) Debug(v ...interface{})                 { l.entry().Debug(v...) }
func (l *logrusLogger) Debugf(format string, v ...interface{}) { l.entry().Debugf(format, v...) }
func (l *logrusLogger) Fatal(v ...interface{})                 { l.entry().Fatal(v...) }
func (l *logrusLogger) Fatalf(format string, v ...interface{}) { l.entry().Fatalf(format, v...) }
