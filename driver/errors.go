package driver

import "errors"

// Sentinel errors for the driver session, one per kind of spec.md §7's
// error taxonomy. A Session also keeps the most recent one (and a short
// message) retrievable through LastError / LastErrorMessage, mirroring the
// original's "numeric code plus human-readable buffer" session slot.
var (
	ErrInvalidParameter    = errors.New("driver: invalid parameter")
	ErrNotInitialized      = errors.New("driver: session not initialized")
	ErrNotConnected        = errors.New("driver: session not connected")
	ErrAlreadyInitialized  = errors.New("driver: session already connected")
	ErrConnectionFailed    = errors.New("driver: connection failed")
	ErrCommunicationFailed = errors.New("driver: communication failed")
	ErrTimeout             = errors.New("driver: operation timed out")
	ErrProtocol            = errors.New("driver: protocol error")
	ErrDevice              = errors.New("driver: device reported an error")
	ErrInternal            = errors.New("driver: internal error")
)
