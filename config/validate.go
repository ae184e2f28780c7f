package config

import (
	"fmt"

	"github.com/semivibe/semi-vibe-go/logger"
)

// Validate checks configuration correctness. It performs declarative
// validation only and must not mutate cfg.
func Validate(cfg *Config) error {
	if cfg.Device.Port < 0 || cfg.Device.Port > 65535 {
		return fmt.Errorf("device.port %d out of range [0, 65535]", cfg.Device.Port)
	}
	if cfg.Driver.Port < 0 || cfg.Driver.Port > 65535 {
		return fmt.Errorf("driver.port %d out of range [0, 65535]", cfg.Driver.Port)
	}

	if cfg.Device.ReadTimeoutMs <= 0 {
		return fmt.Errorf("device.read_timeout_ms must be positive, got %d", cfg.Device.ReadTimeoutMs)
	}
	if cfg.Driver.TimeoutMs <= 0 {
		return fmt.Errorf("driver.timeout_ms must be positive, got %d", cfg.Driver.TimeoutMs)
	}

	if cfg.Device.RatePerSecond <= 0 || cfg.Device.RateBurst <= 0 {
		return fmt.Errorf("device.rate_per_second and device.rate_burst must be positive")
	}

	switch cfg.Log.Backend {
	case "slog", "zap":
	default:
		return fmt.Errorf("log.backend must be slog or zap, got %q", cfg.Log.Backend)
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		return err
	}

	return nil
}

// ParseLevel maps a config-file level name to a logger.LogLevel.
func ParseLevel(level string) (logger.LogLevel, error) {
	switch level {
	case "debug":
		return logger.DebugLevel, nil
	case "info", "":
		return logger.InfoLevel, nil
	case "warn":
		return logger.WarnLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", level)
	}
}
