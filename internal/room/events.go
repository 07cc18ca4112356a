// internal/room/events.go
package room

// EventType tags outbound notifications emitted by the room state machine.
type EventType string

const (
	// EventError is private: a join validation failure sent to the
	// originating connection only.
	EventError EventType = "error"
	// EventJoined is private: the post-join acknowledgment carrying the
	// participant's assigned identifier and the room snapshot.
	EventJoined EventType = "joined"
	// EventRoomUpdate is public: broadcast to every participant after any
	// state mutation.
	EventRoomUpdate EventType = "room_update"
	// EventWinners is public: the allocation result broadcast.
	EventWinners EventType = "winners"
)

// Event is the single outbound message shape handed to the transport layer.
type Event struct {
	Type               EventType           `json:"type"`
	Message            string              `json:"message,omitempty"`
	ParticipantID      string              `json:"participantId,omitempty"`
	Room               *Snapshot           `json:"room,omitempty"`
	WinnersByTopic     map[string][]string `json:"winnersByTopic,omitempty"`
	AssignmentByPlayer map[string]string   `json:"assignmentByPlayer,omitempty"`
}

// SendFunc delivers an event to one participant's connection. The registry
// owned by the transport layer implements it; sends must never block.
type SendFunc func(participantID string, ev Event)

// ErrorEvent builds a private error notification.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
