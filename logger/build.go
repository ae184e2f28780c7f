package logger

import (
	"fmt"
	"io"
)

// Backend names a selectable Logger implementation.
type Backend string

const (
	BackendSlog Backend = "slog"
	BackendZap  Backend = "zap"
)

// Build constructs a Logger for the named backend, optionally wrapping
// output in a rotating file sink when filePath is non-empty.
func Build(backend Backend, level LogLevel, filePath string, maxSizeMB, maxBackups, maxAgeDays int) (Logger, error) {
	var output io.Writer
	if filePath != "" {
		output = NewRotatingWriter(filePath, maxSizeMB, maxBackups, maxAgeDays)
	}

	switch backend {
	case "", BackendSlog:
		return NewSlog(level, false, output), nil
	case BackendZap:
		return NewZap(level, output), nil
	default:
		return nil, fmt.Errorf("logger: unknown backend %q", backend)
	}
}
