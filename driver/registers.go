package driver

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/semivibe/semi-vibe-go/internal/protocol"
	"github.com/semivibe/semi-vibe-go/internal/registermap"
)

// checkAccess applies the static access-permission check of spec.md §4.4:
// reject any access to the reserved base, reject writes to the read-only
// bases, and reject unknown CONTROL offsets, all locally and before a
// round trip. It mirrors registermap.BaseAccess plus CONTROL's offset
// allow-list.
func checkAccess(base registermap.Base, offset uint8, rw protocol.ReadWrite) error {
	access, known := registermap.BaseAccess(base)
	if !known || access == registermap.AccessNone {
		return ErrInvalidParameter
	}

	if access == registermap.AccessReadOnly && rw == protocol.Write {
		return ErrInvalidParameter
	}

	if base == registermap.BaseControl {
		switch offset {
		case registermap.OffsetPowerSensors, registermap.OffsetPowerActuators,
			registermap.OffsetResetSensors, registermap.OffsetResetActuators:
		default:
			return ErrInvalidParameter
		}
	}

	return nil
}

// exchange sends one frame and returns the parsed response. It is the
// single choke point every register helper and SendRaw funnel through, so
// the send-then-receive-then-parse sequence and its error mapping live in
// exactly one place.
func (s *Session) exchange(req protocol.Message) (protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exchangeLocked(req)
}

func (s *Session) exchangeLocked(req protocol.Message) (protocol.Message, error) {
	if s.state != ConnectedState {
		return protocol.Message{}, s.fail(ErrNotConnected, "not connected")
	}

	frame := protocol.Format(req)

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.timeout)); err != nil {
		return protocol.Message{}, s.fail(ErrCommunicationFailed, fmt.Sprintf("set write deadline: %v", err))
	}
	if _, err := s.conn.Write([]byte(frame)); err != nil {
		return protocol.Message{}, s.mapSendRecvError(err, "send")
	}

	if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.timeout)); err != nil {
		return protocol.Message{}, s.fail(ErrCommunicationFailed, fmt.Sprintf("set read deadline: %v", err))
	}

	buf := make([]byte, protocol.FrameLen)
	if _, err := readFull(s.conn, buf); err != nil {
		return protocol.Message{}, s.mapSendRecvError(err, "receive")
	}

	raw := string(buf)
	resp, err := protocol.Parse(raw)
	if err != nil {
		return protocol.Message{}, s.fail(ErrProtocol, fmt.Sprintf("parse response: %v", err))
	}

	// Parse only decodes the nominal Base/Offset/RW/Data fields; an
	// error-response frame ("1FFFFF" etc.) parses successfully but needs its
	// Error field filled in by hand so resp.IsError() actually reports it.
	if code, ok := protocol.LooksLikeErrorFrame(raw); ok {
		resp.Error = code
	}

	return resp, nil
}

func (s *Session) mapSendRecvError(err error, phase string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return s.fail(ErrTimeout, fmt.Sprintf("%s timed out", phase))
	}
	return s.fail(ErrCommunicationFailed, fmt.Sprintf("%s failed: %v", phase, err))
}

// readRegister implements spec.md §4.4's read_register: permission check,
// exchange, then reject an error-response frame.
func (s *Session) readRegister(base registermap.Base, offset uint8) (uint8, error) {
	s.cfg.met.Operation("read_register")

	if err := checkAccess(base, offset, protocol.Read); err != nil {
		s.mu.Lock()
		s.fail(err, "read rejected locally")
		s.mu.Unlock()
		return 0, err
	}

	resp, err := s.exchange(protocol.NewRead(uint8(base), offset))
	if err != nil {
		return 0, err
	}

	if resp.IsError() {
		s.mu.Lock()
		s.fail(ErrDevice, fmt.Sprintf("device returned %s", resp.Error))
		s.mu.Unlock()
		return 0, ErrDevice
	}

	return resp.Data, nil
}

// writeRegister implements spec.md §4.4's write_register: permission
// check, exchange, then require the response to echo base/offset/rw=1/
// data verbatim (write verification).
func (s *Session) writeRegister(base registermap.Base, offset, value uint8) error {
	s.cfg.met.Operation("write_register")

	if err := checkAccess(base, offset, protocol.Write); err != nil {
		s.mu.Lock()
		s.fail(err, "write rejected locally")
		s.mu.Unlock()
		return err
	}

	resp, err := s.exchange(protocol.NewWrite(uint8(base), offset, value))
	if err != nil {
		return err
	}

	if resp.IsError() {
		s.mu.Lock()
		s.fail(ErrDevice, fmt.Sprintf("device returned %s", resp.Error))
		s.mu.Unlock()
		return ErrDevice
	}

	if resp.Base != uint8(base) || resp.Offset != offset || resp.RW != protocol.Write || resp.Data != value {
		s.mu.Lock()
		s.fail(ErrDevice, "write echo mismatch")
		s.mu.Unlock()
		return ErrDevice
	}

	return nil
}

// SendRaw parses frame, exchanges it with the device exactly as given (no
// local permission check), and returns the formatted response. Reserved
// for tests and diagnostics per spec.md §4.4; not part of the verified
// high-level API.
func (s *Session) SendRaw(frame string) (string, error) {
	req, err := protocol.Parse(frame)
	if err != nil {
		return "", ErrInvalidParameter
	}

	resp, err := s.exchange(req)
	if err != nil {
		return "", err
	}

	return protocol.Format(resp), nil
}
