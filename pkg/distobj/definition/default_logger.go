package definition

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/weilewei/dist-object/pkg/distobj/types"
)

// The default logger used if the user does not provide its own
// implementation.
type DefaultLogger struct {
	log   *logrus.Logger
	debug bool
}

func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	return &DefaultLogger{log: l}
}

var _ types.Logger = (*DefaultLogger)(nil)

func (l *DefaultLogger) Info(v ...interface{}) {
	l.log.Info(v...)
}

func (l *DefaultLogger) Infof(format string, v ...interface{}) {
	l.log.Infof(format, v...)
}

func (l *DefaultLogger) Warn(v ...interface{}) {
	l.log.Warn(v...)
}

func (l *DefaultLogger) Warnf(format string, v ...interface{}) {
	l.log.Warnf(format, v...)
}

func (l *DefaultLogger) Error(v ...interface{}) {
	l.log.Error(v...)
}

func (l *DefaultLogger) Errorf(format string, v ...interface{}) {
	l.log.Errorf(format, v...)
}

func (l *DefaultLogger) Debug(v ...interface{}) {
	l.log.Debug(v...)
}

func (l *DefaultLogger) Debugf(format string, v ...interface{}) {
	l.log.Debugf(format, v...)
}

func (l *DefaultLogger) ToggleDebug(value bool) bool {
	l.debug = value
	if value {
		l.log.SetLevel(logrus.DebugLevel)
	} else {
		l.log.SetLevel(logrus.InfoLevel)
	}
	return l.debug
}
