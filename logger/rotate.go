package logger

import "gopkg.in/natefinch/lumberjack.v2"

// NewRotatingWriter builds an io.Writer that rotates the given log file
// once it exceeds maxSizeMB, keeping at most maxBackups old files for up to
// maxAgeDays. Build passes it as the output argument of NewSlog or NewZap
// when a log file path is given.
func NewRotatingWriter(path string, maxSizeMB, maxBackups, maxAgeDays int) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}
