package device

import (
	"errors"
	"time"

	"github.com/semivibe/semi-vibe-go/logger"
)

// Config holds the tunables of a Server, built through NewConfig and a
// variadic list of Option values in the same functional-options shape as
// hsmsss.ConnectionConfig.
type Config struct {
	host string
	port int

	// readTimeout bounds how long each read waits for the client's next
	// frame; a client that stays idle longer is disconnected.
	readTimeout time.Duration

	// connectionRate and connectionBurst configure the per-connection
	// token bucket that throttles command frames (spec.md carries no such
	// limit for the reference device; this is an added robustness
	// measure, see SPEC_FULL.md §5).
	connectionRate  float64
	connectionBurst int

	logger logger.Logger
}

// NewConfig builds a Config for host and port with the reference device's
// defaults for every other setting, then applies opts.
func NewConfig(host string, port int, opts ...Option) (*Config, error) {
	cfg := &Config{
		host:            host,
		port:            port,
		readTimeout:     5 * time.Second,
		connectionRate:  200,
		connectionBurst: 50,
		logger:          logger.GetLogger(),
	}

	if port < 0 || port > 65535 {
		return nil, errors.New("device: port out of range [0, 65535]")
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for Config, mirroring hsmsss.ConnOption.
type Option interface {
	apply(*Config) error
}

type optionFunc func(*Config) error

func (f optionFunc) apply(cfg *Config) error { return f(cfg) }

// WithReadTimeout overrides the per-read deadline applied to each client
// connection.
func WithReadTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("device: read timeout must be positive")
		}
		cfg.readTimeout = d
		return nil
	})
}

// WithRateLimit overrides the per-connection command rate limit (frames
// per second, and burst size).
func WithRateLimit(ratePerSecond float64, burst int) Option {
	return optionFunc(func(cfg *Config) error {
		if ratePerSecond <= 0 || burst <= 0 {
			return errors.New("device: rate and burst must be positive")
		}
		cfg.connectionRate = ratePerSecond
		cfg.connectionBurst = burst
		return nil
	})
}

// WithLogger overrides the Logger used by the Server.
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("device: logger must not be nil")
		}
		cfg.logger = l
		return nil
	})
}
