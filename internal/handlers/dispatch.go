// internal/handlers/dispatch.go
package handlers

import (
	"errors"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/bidroom/bidroom/internal/room"
	"github.com/bidroom/bidroom/internal/session"
)

// ClientMessage is the structure of every inbound WebSocket message, tagged
// by Type. Optional numeric and boolean fields are pointers so that an
// absent field is distinguishable from a zero value; numbers arrive as JSON
// floats and are floored before they reach the state machine.
type ClientMessage struct {
	Type string `json:"type"`

	// join
	RoomID string `json:"roomId,omitempty"`
	Name   string `json:"name,omitempty"`

	// set_config
	Budget             *float64 `json:"budget,omitempty"`
	RevealBids         *bool    `json:"revealBids,omitempty"`
	AllowJoinAfterLock *bool    `json:"allowJoinAfterLock,omitempty"`

	// set_topics
	Topics []TopicMessage `json:"topics,omitempty"`

	// bid
	TopicID string   `json:"topicId,omitempty"`
	Amount  *float64 `json:"amount,omitempty"`
}

// TopicMessage is one entry of a set_topics replacement list.
type TopicMessage struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name,omitempty"`
	Capacity *float64 `json:"capacity,omitempty"`
}

// dispatch routes one decoded message from a connection into the room state
// machine. Everything except join is discarded until the session has joined
// a room; unknown types are discarded too.
func dispatch(logger *logrus.Logger, store *room.Store, registry *session.Registry, sess *session.Session, msg ClientMessage) {
	if msg.Type == "join" {
		handleJoin(logger, store, registry, sess, msg)
		return
	}

	if sess.RoomCode == "" {
		logger.Debugf("session %s: discarding %q before join", sess.ParticipantID, msg.Type)
		return
	}
	r, ok := store.Get(sess.RoomCode)
	if !ok {
		logger.Debugf("session %s: room %s gone, discarding %q", sess.ParticipantID, sess.RoomCode, msg.Type)
		return
	}

	switch msg.Type {
	case "set_config":
		r.SetConfig(sess.ParticipantID, room.ConfigUpdate{
			Budget:             floorPtr(msg.Budget),
			RevealBids:         msg.RevealBids,
			AllowJoinAfterLock: msg.AllowJoinAfterLock,
		})
	case "set_topics":
		inputs := make([]room.TopicInput, 0, len(msg.Topics))
		for _, t := range msg.Topics {
			inputs = append(inputs, room.TopicInput{
				ID:       t.ID,
				Name:     t.Name,
				Capacity: floorPtr(t.Capacity),
			})
		}
		r.SetTopics(sess.ParticipantID, inputs)
	case "lock_bids":
		r.SetLocked(sess.ParticipantID, true)
	case "unlock_bids":
		r.SetLocked(sess.ParticipantID, false)
	case "bid":
		amount := 0
		if msg.Amount != nil {
			amount = int(math.Floor(*msg.Amount))
		}
		r.PlaceBid(sess.ParticipantID, msg.TopicID, amount)
	case "compute_winners":
		r.ComputeWinners(sess.ParticipantID)
	default:
		logger.Debugf("session %s: unknown message type %q", sess.ParticipantID, msg.Type)
	}
}

// handleJoin resolves the target room and joins it. Join validation
// failures go back to the originating connection as private error events.
// Joining a different room while already in one leaves the old room first.
func handleJoin(logger *logrus.Logger, store *room.Store, registry *session.Registry, sess *session.Session, msg ClientMessage) {
	code := room.NormalizeCode(msg.RoomID)
	if code != "" && code == sess.RoomCode {
		// Rejoin of the current room: refresh the membership in place.
		if r, ok := store.Get(code); ok {
			if err := r.Join(sess.ParticipantID, msg.Name); err != nil {
				registry.Send(sess.ParticipantID, room.ErrorEvent(err.Error()))
			}
			return
		}
	}

	r, err := store.Join(msg.RoomID, sess.ParticipantID, msg.Name)
	if err != nil {
		if errors.Is(err, room.ErrRoomCodeRequired) || errors.Is(err, room.ErrRoomLocked) {
			registry.Send(sess.ParticipantID, room.ErrorEvent(err.Error()))
		}
		return
	}

	if sess.RoomCode != "" && sess.RoomCode != r.Code {
		if old, ok := store.Get(sess.RoomCode); ok {
			old.Disconnect(sess.ParticipantID)
		}
	}
	sess.RoomCode = r.Code
	logger.Infof("participant %s joined room %s", sess.ParticipantID, r.Code)
}

func floorPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	n := int(math.Floor(*v))
	return &n
}
