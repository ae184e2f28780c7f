package device

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/semivibe/semi-vibe-go/device/metrics"
	"github.com/semivibe/semi-vibe-go/internal/protocol"
	"github.com/semivibe/semi-vibe-go/internal/registermap"
	"github.com/semivibe/semi-vibe-go/logger"
)

// ackToken and exitToken are the two out-of-band byte sequences of the
// wire protocol: the server's greeting and the client's graceful-close
// request.
var (
	ackToken  = []byte("ACK")
	exitToken = []byte("exit")
)

// readBufSize matches the reference device's recv buffer (spec.md §6:
// "reading up to 255 bytes at a time").
const readBufSize = 255

// Server accepts one client connection at a time over TCP, performs the
// ACK handshake, and dispatches frames to a Memory engine. Its accept loop
// and per-connection loop follow the shape of
// hsmsss.Connection.openPassive / tryAcceptConn, simplified to the single-
// client, no-reconnect-supervision semantics of spec.md §6.
type Server struct {
	cfg *Config
	mem *Memory
	met *metrics.Metrics
	log logger.Logger

	listenerMu sync.Mutex
	listener   net.Listener

	connMu sync.Mutex
	conn   net.Conn

	wg       sync.WaitGroup
	shutdown atomic.Bool
}

// NewServer creates a Server bound to cfg's host and port, driving mem. met
// may be nil to disable Prometheus instrumentation.
func NewServer(cfg *Config, mem *Memory, met *metrics.Metrics) *Server {
	return &Server{
		cfg: cfg,
		mem: mem,
		met: met,
		log: cfg.logger,
	}
}

// Addr returns the address the server is listening on. It is only valid
// after Start has returned successfully.
func (s *Server) Addr() net.Addr {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start binds the listening socket and launches the accept loop in the
// background. It returns once the socket is bound, matching spec.md §6's
// "fatal conditions... cause the server to fail to start" requirement.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.cfg.host, strconv.Itoa(s.cfg.port))

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		s.log.Error("device: failed to listen", "address", address, "error", err)
		return err
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	s.log.Info("device: listening", "address", listener.Addr())

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	return nil
}

// Close stops the accept loop, closes the current client connection (if
// any), and waits for background goroutines to finish.
func (s *Server) Close() error {
	s.shutdown.Store(true)

	s.listenerMu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.listenerMu.Unlock()

	s.connMu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()

	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.shutdown.Load() {
				return
			}
			s.log.Error("device: accept failed", "error", err)
			return
		}

		// Single-client semantics (spec.md §6): a second connection is
		// rejected rather than queued. A client that has just sent exit can
		// still hold the slot for a moment while its goroutine winds down,
		// so the slot is re-checked for up to about 100ms before rejecting.
		busy := true
		for attempt := 0; busy && attempt < 10; attempt++ {
			if attempt > 0 {
				time.Sleep(10 * time.Millisecond)
			}
			s.connMu.Lock()
			busy = s.conn != nil
			if !busy {
				s.conn = conn
			}
			s.connMu.Unlock()
		}

		if busy {
			s.log.Warn("device: rejecting connection, client already attached", "remote", conn.RemoteAddr())
			_ = conn.Close()
			continue
		}

		if s.met != nil {
			s.met.ConnectionAccepted()
		}

		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		_ = conn.Close()
		s.connMu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.connMu.Unlock()
		if s.met != nil {
			s.met.ConnectionClosed()
		}
	}()

	remote := conn.RemoteAddr()
	s.log.Debug("device: client connected", "remote", remote)

	if _, err := conn.Write(ackToken); err != nil {
		s.log.Warn("device: failed to send handshake", "remote", remote, "error", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(s.cfg.connectionRate), s.cfg.connectionBurst)

	buf := make([]byte, readBufSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.cfg.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.readTimeout))
		}

		n, err := conn.Read(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Debug("device: client read ended", "remote", remote, "error", err)
			}
			return
		}

		payload := buf[:n]

		if string(payload) == string(exitToken) {
			s.log.Debug("device: client requested graceful close", "remote", remote)
			return
		}

		if !s.throttle(limiter, remote) {
			continue
		}

		resp := s.handleFrame(string(payload))
		if _, err := conn.Write([]byte(resp)); err != nil {
			s.log.Debug("device: write failed", "remote", remote, "error", err)
			return
		}
	}
}

// throttle enforces the per-connection rate limit. A frame that is
// slightly ahead of its budget is held for the reservation's delay via a
// pooled timer (the same getTimer/putTimer discipline
// hsmsss.passiveConnStateHandler uses for its T7 wait) rather than
// dropped outright; a frame that would need to wait longer than the
// configured read timeout is dropped instead, since holding it that long
// would starve the client's own read deadline.
func (s *Server) throttle(limiter *rate.Limiter, remote net.Addr) bool {
	reservation := limiter.Reserve()
	if !reservation.OK() {
		if s.met != nil {
			s.met.RateLimited()
		}
		s.log.Warn("device: dropping frame, rate limit exceeded", "remote", remote)
		return false
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return true
	}

	if s.cfg.readTimeout > 0 && delay > s.cfg.readTimeout {
		reservation.Cancel()
		if s.met != nil {
			s.met.RateLimited()
		}
		s.log.Warn("device: dropping frame, rate limit wait too long", "remote", remote, "delay", delay)
		return false
	}

	timer := getTimer(delay)
	defer putTimer(timer)
	<-timer.C

	return true
}

// handleFrame parses one request frame, dispatches it against the device
// memory, and formats the response. Malformed frames (wrong length or
// non-hex content) are reported as Forbidden per spec.md §4.2's treatment
// of malformed input, not Invalid.
func (s *Server) handleFrame(frame string) string {
	parsed, err := protocol.Parse(frame)
	if err != nil {
		if s.met != nil {
			s.met.MalformedFrame()
			s.met.ErrorEmitted(protocol.Forbidden.String())
		}
		return protocol.Format(protocol.NewError(protocol.Forbidden))
	}

	// The parsed request rides a pooled *Message for the remainder of this
	// frame's processing, the same discipline hsms.getDataMessage /
	// putDataMessage applies around its own per-message hot path.
	req := protocol.GetMessage(parsed)
	defer protocol.PutMessage(req)

	if s.met != nil {
		s.met.FrameProcessed(registermap.Base(req.Base).String())
	}

	resp := s.mem.Dispatch(*req)

	if resp.IsError() && s.met != nil {
		s.met.ErrorEmitted(resp.Error.String())
	}

	return protocol.Format(resp)
}
