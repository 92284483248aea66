package logger

var defLogger = NewSlog(InfoLevel, false)

// GetLogger returns the package default logger. It is only used by configs that
// were not given a logger explicitly.
func GetLogger() Logger {
	return defLogger
}

// SetLevel sets the level of the package default logger.
func SetLevel(level Level) {
	defLogger.SetLevel(level)
}

// With returns a child of the package default logger.
func With(keyValues ...any) Logger {
	return defLogger.With(keyValues...)
}
