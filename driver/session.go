// Package driver implements the Semi-Vibe driver session: a single TCP
// client that speaks the register protocol to a device.Server and exposes
// a typed, verified API over it.
package driver

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semivibe/semi-vibe-go/driver/metrics"
	"github.com/semivibe/semi-vibe-go/logger"
)

// OpState names the lifecycle state of a Session, mirroring
// hsms.AtomicOpState's closed/opening/opened/closing cycle but simplified
// to the two states a driver session actually has: connected or not.
type OpState uint32

const (
	DisconnectedState OpState = iota
	ConnectedState
)

func (s OpState) String() string {
	if s == ConnectedState {
		return "Connected"
	}
	return "Disconnected"
}

// Config holds a Session's tunables, built with NewConfig plus a variadic
// Option list in the same functional-options shape as device.Config.
type Config struct {
	timeout time.Duration
	logCb   func(msg string)
	logger  logger.Logger
	met     *metrics.Metrics
}

// NewConfig builds a Config with the reference driver's default 5-second
// send/receive timeout.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		timeout: 5 * time.Second,
		logger:  logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Option is a functional option for Config.
type Option interface {
	apply(*Config) error
}

type optionFunc func(*Config) error

func (f optionFunc) apply(cfg *Config) error { return f(cfg) }

// WithTimeout overrides the send/receive timeout applied to every
// register operation.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("driver: timeout must be positive")
		}
		cfg.timeout = d
		return nil
	})
}

// WithLogCallback installs a callback invoked with a short human-readable
// message whenever an operation fails, matching spec.md §4.4's "optional
// log callback".
func WithLogCallback(cb func(msg string)) Option {
	return optionFunc(func(cfg *Config) error {
		cfg.logCb = cb
		return nil
	})
}

// WithLogger overrides the structured Logger used for debug-level tracing
// (distinct from the user-facing log callback above).
func WithLogger(l logger.Logger) Option {
	return optionFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("driver: logger must not be nil")
		}
		cfg.logger = l
		return nil
	})
}

// WithMetrics attaches a Prometheus metrics sink. Omit to run without
// instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return optionFunc(func(cfg *Config) error {
		cfg.met = m
		return nil
	})
}

// Session is a single driver connection to one device. Every public
// operation acquires mu for its full duration (spec.md §5: "holds one
// lock guarding all mutable state"), so a *Session is safe for concurrent
// use by multiple goroutines, which will simply queue behind one another.
type Session struct {
	id  uuid.UUID
	cfg *Config

	mu    sync.Mutex
	state OpState
	conn  net.Conn

	lastErr    error
	lastErrMsg string
}

// New allocates a Session in the disconnected state. It corresponds to
// spec.md §4.4's create(log_cb).
func New(cfg *Config) *Session {
	return &Session{
		id:    uuid.New(),
		cfg:   cfg,
		state: DisconnectedState,
	}
}

// ID returns the session's opaque handle, usable as a Registry key.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Connect opens a TCP stream to host:port and completes the ACK
// handshake. It fails with ErrAlreadyInitialized if already connected, and
// with ErrConnectionFailed if the dial or handshake does not succeed
// within the configured timeout.
func (s *Session) Connect(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == ConnectedState {
		return s.fail(ErrAlreadyInitialized, "session already connected")
	}

	address := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	conn, err := net.DialTimeout("tcp", address, s.cfg.timeout)
	if err != nil {
		return s.fail(ErrConnectionFailed, fmt.Sprintf("dial %s: %v", address, err))
	}

	if err := conn.SetReadDeadline(time.Now().Add(s.cfg.timeout)); err != nil {
		_ = conn.Close()
		return s.fail(ErrConnectionFailed, fmt.Sprintf("set read deadline: %v", err))
	}

	greeting := make([]byte, len(ackToken))
	if _, err := readFull(conn, greeting); err != nil {
		_ = conn.Close()
		return s.fail(ErrConnectionFailed, fmt.Sprintf("handshake read: %v", err))
	}
	if string(greeting) != string(ackToken) {
		_ = conn.Close()
		return s.fail(ErrConnectionFailed, "handshake: unexpected greeting")
	}

	s.conn = conn
	s.state = ConnectedState
	s.clearError()

	s.cfg.met.Connected()
	s.cfg.logger.Debug("driver: connected", "session", s.id, "address", address)

	return nil
}

// Disconnect sends the exit token and closes the stream, always leaving
// the session in the disconnected state even if the send fails.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.disconnectLocked()
}

func (s *Session) disconnectLocked() error {
	if s.state != ConnectedState {
		return nil
	}

	_, writeErr := s.conn.Write(exitToken)
	closeErr := s.conn.Close()

	s.conn = nil
	s.state = DisconnectedState

	if writeErr != nil {
		return s.fail(ErrCommunicationFailed, fmt.Sprintf("send exit: %v", writeErr))
	}
	if closeErr != nil {
		return s.fail(ErrCommunicationFailed, fmt.Sprintf("close: %v", closeErr))
	}

	return nil
}

// Destroy disconnects if connected and leaves the session in the
// disconnected state. It does not mark the session as destroyed: later
// register operations fail with ErrNotConnected, and Connect may be called
// again.
func (s *Session) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.disconnectLocked()
	s.state = DisconnectedState
	s.conn = nil

	return err
}

// SetTimeout updates the send/receive timeout, applying it to the
// underlying connection immediately if one is open.
func (s *Session) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidParameter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.timeout = d

	return nil
}

// State returns the session's current lifecycle state.
func (s *Session) State() OpState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// LastError returns the sentinel error of the most recent failed
// operation, or nil if none has failed yet.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// LastErrorMessage returns the short human-readable description of the
// most recent failure.
func (s *Session) LastErrorMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErrMsg
}

// fail records err/msg as the session's last error, emits msg through the
// log callback if one is installed, and returns err for the caller to
// propagate. Callers must hold mu.
func (s *Session) fail(err error, msg string) error {
	s.lastErr = err
	s.lastErrMsg = msg

	s.cfg.met.Error(errorKind(err))

	if s.cfg.logCb != nil {
		s.cfg.logCb(msg)
	}
	s.cfg.logger.Debug("driver: operation failed", "session", s.id, "error", err, "detail", msg)

	return err
}

// errorKind maps a sentinel error to the short label used for the
// errors_total metric's "kind" dimension.
func errorKind(err error) string {
	switch err {
	case ErrInvalidParameter:
		return "invalid_parameter"
	case ErrNotInitialized:
		return "not_initialized"
	case ErrNotConnected:
		return "not_connected"
	case ErrAlreadyInitialized:
		return "already_initialized"
	case ErrConnectionFailed:
		return "connection_failed"
	case ErrCommunicationFailed:
		return "communication_failed"
	case ErrTimeout:
		return "timeout"
	case ErrProtocol:
		return "protocol_error"
	case ErrDevice:
		return "device_error"
	default:
		return "internal"
	}
}

func (s *Session) clearError() {
	s.lastErr = nil
	s.lastErrMsg = ""
}

// readFull reads exactly len(buf) bytes, looping over short reads, the way
// a driver must when talking to a socket that hands back partial chunks.
func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
