package config

import "github.com/spf13/pflag"

// BindDeviceFlags registers pflag overrides for the device simulator's
// settings onto fs and returns a function that copies the flag values onto
// cfg; call it after fs.Parse. Each flag defaults to cfg's current value,
// so a flag that is not given leaves the YAML/default value in place
// ("file sets the baseline, flags override it").
func BindDeviceFlags(fs *pflag.FlagSet, cfg *Config) func() {
	host := fs.String("host", cfg.Device.Host, "device listen host")
	port := fs.Int("port", cfg.Device.Port, "device listen port")
	rate := fs.Float64("rate", cfg.Device.RatePerSecond, "per-connection frame rate limit")
	burst := fs.Int("burst", cfg.Device.RateBurst, "per-connection frame burst size")
	metrics := fs.Bool("metrics", cfg.Device.MetricsEnabled, "enable the Prometheus metrics endpoint")
	metricsAddr := fs.String("metrics-addr", cfg.Device.MetricsAddr, "Prometheus metrics listen address")
	logLevel := fs.String("log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	logBackend := fs.String("log-backend", cfg.Log.Backend, "log backend: slog, zap")

	return func() {
		cfg.Device.Host = *host
		cfg.Device.Port = *port
		cfg.Device.RatePerSecond = *rate
		cfg.Device.RateBurst = *burst
		cfg.Device.MetricsEnabled = *metrics
		cfg.Device.MetricsAddr = *metricsAddr
		cfg.Log.Level = *logLevel
		cfg.Log.Backend = *logBackend
	}
}

// BindDriverFlags registers pflag overrides for a driver CLI's connection
// settings.
func BindDriverFlags(fs *pflag.FlagSet, cfg *Config) func() {
	host := fs.String("host", cfg.Driver.Host, "device host to connect to")
	port := fs.Int("port", cfg.Driver.Port, "device port to connect to")
	timeoutMs := fs.Int("timeout-ms", cfg.Driver.TimeoutMs, "send/receive timeout in milliseconds")
	logLevel := fs.String("log-level", cfg.Log.Level, "log level: debug, info, warn, error")

	return func() {
		cfg.Driver.Host = *host
		cfg.Driver.Port = *port
		cfg.Driver.TimeoutMs = *timeoutMs
		cfg.Log.Level = *logLevel
	}
}
