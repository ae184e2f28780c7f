package driver

import (
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry tracks live sessions by their opaque uuid.UUID handle, so a
// host process driving many devices can look one up (for metrics, or for
// a supervisory "disconnect all" sweep) without passing *Session pointers
// through every layer. Grounded on secs1.Connection's xsync.MapOf-based
// reply-channel tables for the same reason: many short-lived lookups and
// inserts from concurrent goroutines, no need for a full mutex+map.
type Registry struct {
	sessions *xsync.MapOf[uuid.UUID, *Session]
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: xsync.NewMapOf[uuid.UUID, *Session](),
	}
}

// Add registers s under its ID.
func (r *Registry) Add(s *Session) {
	r.sessions.Store(s.ID(), s)
}

// Remove unregisters the session with the given ID, if present.
func (r *Registry) Remove(id uuid.UUID) {
	r.sessions.Delete(id)
}

// Get looks up a session by ID.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	return r.sessions.Load(id)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	return r.sessions.Size()
}

// DisconnectAll disconnects every registered session, collecting and
// returning the first error encountered (if any) while still attempting
// every session.
func (r *Registry) DisconnectAll() error {
	var firstErr error

	r.sessions.Range(func(id uuid.UUID, s *Session) bool {
		if err := s.Disconnect(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})

	return firstErr
}
