package config

import "strings"

// Normalize applies post-validation normalization. It is allowed to
// mutate cfg and must be called only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Log.Backend = strings.ToLower(strings.TrimSpace(cfg.Log.Backend))
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	cfg.Device.Host = strings.TrimSpace(cfg.Device.Host)
	cfg.Driver.Host = strings.TrimSpace(cfg.Driver.Host)
}
