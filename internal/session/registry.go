// internal/session/registry.go

// Package session owns the transport side of participant identity: it maps
// each live connection's participant id to its outbound event channel and
// current room. Room state stays transport-free; the registry is consulted
// only when delivering events.
package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bidroom/bidroom/internal/room"
)

// outBufferSize bounds the per-connection outbound queue. A connection that
// cannot drain it has events dropped rather than blocking room mutation.
const outBufferSize = 16

// Session is one live connection's presence: its opaque participant
// identifier (stable for the connection's lifetime), the room it joined, and
// the channel its write pump drains.
type Session struct {
	ParticipantID string
	RoomCode      string
	Out           chan room.Event
	Cancel        context.CancelFunc
}

// New builds a session for a freshly accepted connection.
func New(participantID string, cancel context.CancelFunc) *Session {
	return &Session{
		ParticipantID: participantID,
		Out:           make(chan room.Event, outBufferSize),
		Cancel:        cancel,
	}
}

// Send queues an event for the connection without blocking. Events are
// dropped with a warning when the buffer is full.
func (s *Session) Send(ev room.Event) {
	select {
	case s.Out <- ev:
	default:
		logrus.Warnf("session %s: outbound buffer full, dropped %s event", s.ParticipantID, ev.Type)
	}
}

// Registry is the connection registry for all live sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its participant id.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ParticipantID] = s
}

// Remove drops a session and closes its outbound channel so the write pump
// stops.
func (r *Registry) Remove(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[participantID]; ok {
		delete(r.sessions, participantID)
		close(s.Out)
	}
}

// Get looks a session up by participant id.
func (r *Registry) Get(participantID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[participantID]
	return s, ok
}

// Send delivers an event to one participant's connection; unknown ids are
// ignored. Satisfies room.SendFunc.
func (r *Registry) Send(participantID string, ev room.Event) {
	r.mu.Lock()
	s, ok := r.sessions[participantID]
	r.mu.Unlock()
	if ok {
		s.Send(ev)
	}
}
