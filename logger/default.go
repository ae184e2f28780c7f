package logger

var defLogger = NewSlog(InfoLevel, false, nil)

func Debug(msg string, keysAndValues ...any) {
	defLogger.Debug(msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	defLogger.Info(msg, keysAndValues...)
}

func Warn(msg string, keysAndValues ...any) {
	defLogger.Warn(msg, keysAndValues...)
}

func Error(msg string, keysAndValues ...any) {
	defLogger.Error(msg, keysAndValues...)
}

func Fatal(msg string, keysAndValues ...any) {
	defLogger.Fatal(msg, keysAndValues...)
}

func SetLevel(level LogLevel) {
	defLogger.SetLevel(level)
}

// GetLogger returns the process-wide default Logger instance.
func GetLogger() Logger {
	return defLogger
}

// SetDefault replaces the process-wide default Logger instance, e.g. so
// main() can switch to the zap backend or attach a rotating file sink
// before any package-level calls are made.
func SetDefault(l Logger) {
	defLogger = l
}

func With(keyValues ...any) Logger {
	return defLogger.With(keyValues...)
}
