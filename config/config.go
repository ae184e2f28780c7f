// Package config loads the process-wide configuration for the device
// simulator and driver CLI tools: a YAML file overlaid with command-line
// flags, split into a Validate pass that does not modify the config and a
// Normalize pass that does, in the same shape as tamzrod's internal/config.
package config

// Config is the root configuration document, loaded from YAML and
// overridden by command-line flags.
type Config struct {
	Device DeviceConfig `yaml:"device"`
	Driver DriverConfig `yaml:"driver"`
	Log    LogConfig    `yaml:"log"`
}

// DeviceConfig configures the embedded device simulator.
type DeviceConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ReadTimeoutMs int `yaml:"read_timeout_ms"`

	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"`
}

// DriverConfig configures a driver CLI's default connection.
type DriverConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	TimeoutMs int `yaml:"timeout_ms"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// LogConfig configures the process-wide logger.Build call.
type LogConfig struct {
	Backend string `yaml:"backend"` // "slog" or "zap"
	Level   string `yaml:"level"`   // "debug", "info", "warn", "error"

	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default returns the configuration matching spec.md §6's defaults:
// localhost:8989, a 5-second driver timeout, info-level slog logging.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Host:          "localhost",
			Port:          8989,
			ReadTimeoutMs: 5000,
			RatePerSecond: 200,
			RateBurst:     50,
			MetricsAddr:   ":9090",
		},
		Driver: DriverConfig{
			Host:      "localhost",
			Port:      8989,
			TimeoutMs: 5000,
		},
		Log: LogConfig{
			Backend:    "slog",
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
