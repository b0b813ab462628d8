package types

// Logger used across the library. The user can provide its own
// implementation, otherwise a default one is used.
type Logger interface {
	Info(v ...interface{})

	Infof(format string, v ...interface{})

	Warn(v ...interface{})

	Warnf(format string, v ...interface{})

	Error(v ...interface{})

	Errorf(format string, v ...interface{})

	Debug(v ...interface{})

	Debugf(format string, v ...interface{})

	// Enable or disable debug level messages.
	ToggleDebug(value bool) bool
}
