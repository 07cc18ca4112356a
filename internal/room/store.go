// internal/room/store.go
package room

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// Join failure signals. Their messages are the error notifications sent to
// the originating connection.
var (
	ErrRoomCodeRequired = errors.New("RoomCodeRequired")
	ErrRoomLocked       = errors.New("RoomLocked")
)

// Store owns the set of live rooms, keyed by normalized room code. Rooms
// are created lazily on first reference and evicted the moment they empty.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
	send  SendFunc
}

// NewStore builds an empty store. send is installed on every room it
// creates and delivers outbound events to a participant's connection.
func NewStore(send SendFunc) *Store {
	return &Store{
		rooms: make(map[string]*Room),
		send:  send,
	}
}

// GetOrCreate returns the room for code, creating it with default config if
// unseen. Idempotent; creation never fails. The code must already be
// normalized.
func (s *Store) GetOrCreate(code string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[code]; ok {
		return r
	}
	r := NewRoom(code)
	r.SendFn = s.send
	r.OnEmpty = func(code string) {
		s.Remove(code)
	}
	s.rooms[code] = r
	logrus.Debugf("store: created room %s", code)
	return r
}

// Get returns the room for code without creating it.
func (s *Store) Get(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[code]
	return r, ok
}

// Remove deletes a room outright. Callers must only invoke it once the room
// has zero participants.
func (s *Store) Remove(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; ok {
		delete(s.rooms, code)
		logrus.Debugf("store: removed room %s", code)
	}
}

// Rooms returns a copy of the live-room map for listing and debugging.
func (s *Store) Rooms() map[string]*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]*Room, len(s.rooms))
	for code, r := range s.rooms {
		out[code] = r
	}
	return out
}

// Join resolves (or lazily creates) the room for a raw client-supplied code
// and adds the participant to it. This is the only event accepted from
// participants not yet in a room.
func (s *Store) Join(code, participantID, name string) (*Room, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, ErrRoomCodeRequired
	}
	r := s.GetOrCreate(normalized)
	if err := r.Join(participantID, name); err != nil {
		return nil, err
	}
	return r, nil
}
