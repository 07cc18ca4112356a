// internal/handlers/dispatch_test.go
package handlers

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidroom/bidroom/internal/room"
	"github.com/bidroom/bidroom/internal/session"
)

type dispatchEnv struct {
	logger   *logrus.Logger
	store    *room.Store
	registry *session.Registry
}

func newDispatchEnv() *dispatchEnv {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry := session.NewRegistry()
	return &dispatchEnv{
		logger:   logger,
		store:    room.NewStore(registry.Send),
		registry: registry,
	}
}

// connect registers a session the way the websocket handler would.
func (e *dispatchEnv) connect(participantID string) *session.Session {
	sess := session.New(participantID, nil)
	e.registry.Add(sess)
	return sess
}

func (e *dispatchEnv) dispatch(sess *session.Session, msg ClientMessage) {
	dispatch(e.logger, e.store, e.registry, sess, msg)
}

// drain empties a session's outbound buffer and returns what was queued.
func drain(sess *session.Session) []room.Event {
	var out []room.Event
	for {
		select {
		case ev := <-sess.Out:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func f64(v float64) *float64 { return &v }
func b(v bool) *bool         { return &v }

func TestJoinFlow(t *testing.T) {
	env := newDispatchEnv()
	sess := env.connect("p1")

	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "room1", Name: "Alice"})

	assert.Equal(t, "ROOM1", sess.RoomCode)
	events := drain(sess)
	require.Len(t, events, 2, "joiner gets a private ack plus the broadcast")
	assert.Equal(t, room.EventJoined, events[0].Type)
	assert.Equal(t, "p1", events[0].ParticipantID)
	assert.Equal(t, room.EventRoomUpdate, events[1].Type)
	require.NotNil(t, events[0].Room)
	assert.Equal(t, "Alice", events[0].Room.Participants[0].Name)
}

func TestJoinWithEmptyRoomID(t *testing.T) {
	env := newDispatchEnv()
	sess := env.connect("p1")

	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "   "})

	assert.Empty(t, sess.RoomCode)
	events := drain(sess)
	require.Len(t, events, 1)
	assert.Equal(t, room.EventError, events[0].Type)
	assert.Equal(t, "RoomCodeRequired", events[0].Message)
}

func TestJoinLockedRoomSendsError(t *testing.T) {
	env := newDispatchEnv()
	host := env.connect("host")
	env.dispatch(host, ClientMessage{Type: "join", RoomID: "R", Name: "Host"})
	env.dispatch(host, ClientMessage{Type: "set_config", AllowJoinAfterLock: b(false)})
	env.dispatch(host, ClientMessage{Type: "lock_bids"})

	late := env.connect("late")
	env.dispatch(late, ClientMessage{Type: "join", RoomID: "R", Name: "Late"})

	assert.Empty(t, late.RoomCode)
	events := drain(late)
	require.Len(t, events, 1)
	assert.Equal(t, room.EventError, events[0].Type)
	assert.Equal(t, "RoomLocked", events[0].Message)
}

func TestEventsBeforeJoinAreDiscarded(t *testing.T) {
	env := newDispatchEnv()
	sess := env.connect("p1")

	env.dispatch(sess, ClientMessage{Type: "bid", TopicID: "t1", Amount: f64(10)})
	env.dispatch(sess, ClientMessage{Type: "lock_bids"})
	env.dispatch(sess, ClientMessage{Type: "compute_winners"})

	assert.Empty(t, drain(sess))
	assert.Empty(t, env.store.Rooms(), "no room materializes from pre-join traffic")
}

func TestUnknownMessageTypeIsDiscarded(t *testing.T) {
	env := newDispatchEnv()
	sess := env.connect("p1")
	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "R"})
	drain(sess)

	env.dispatch(sess, ClientMessage{Type: "dance"})

	assert.Empty(t, drain(sess))
}

func TestNumericFieldsAreFloored(t *testing.T) {
	env := newDispatchEnv()
	sess := env.connect("p1")
	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "R", Name: "Host"})
	env.dispatch(sess, ClientMessage{Type: "set_config", Budget: f64(150.9)})
	env.dispatch(sess, ClientMessage{
		Type:   "set_topics",
		Topics: []TopicMessage{{ID: "t1", Name: "T", Capacity: f64(2.7)}},
	})
	env.dispatch(sess, ClientMessage{Type: "bid", TopicID: "t1", Amount: f64(49.99)})

	r, ok := env.store.Get("R")
	require.True(t, ok)
	r.Mu.Lock()
	defer r.Mu.Unlock()
	assert.Equal(t, 150, r.Config.Budget)
	assert.Equal(t, 2, r.Topics[0].Capacity)
	assert.Equal(t, 49, r.Bids["p1"]["t1"].Amount)
}

func TestBidWithoutAmountDefaultsToZero(t *testing.T) {
	env := newDispatchEnv()
	sess := env.connect("p1")
	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "R"})
	env.dispatch(sess, ClientMessage{
		Type:   "set_topics",
		Topics: []TopicMessage{{ID: "t1", Name: "T"}},
	})

	env.dispatch(sess, ClientMessage{Type: "bid", TopicID: "t1"})

	r, _ := env.store.Get("R")
	r.Mu.Lock()
	defer r.Mu.Unlock()
	assert.Equal(t, 0, r.Bids["p1"]["t1"].Amount)
}

func TestHostCommandsRouteThrough(t *testing.T) {
	env := newDispatchEnv()
	host := env.connect("host")
	guest := env.connect("guest")
	env.dispatch(host, ClientMessage{Type: "join", RoomID: "R", Name: "Host"})
	env.dispatch(guest, ClientMessage{Type: "join", RoomID: "R", Name: "Guest"})
	env.dispatch(host, ClientMessage{
		Type:   "set_topics",
		Topics: []TopicMessage{{ID: "t1", Name: "T", Capacity: f64(1)}},
	})
	env.dispatch(host, ClientMessage{Type: "bid", TopicID: "t1", Amount: f64(30)})
	env.dispatch(guest, ClientMessage{Type: "bid", TopicID: "t1", Amount: f64(60)})
	drain(host)
	drain(guest)

	env.dispatch(host, ClientMessage{Type: "compute_winners"})

	hostEvents := drain(host)
	require.Len(t, hostEvents, 1)
	assert.Equal(t, room.EventWinners, hostEvents[0].Type)
	assert.Equal(t, []string{"guest"}, hostEvents[0].WinnersByTopic["t1"])
	guestEvents := drain(guest)
	require.Len(t, guestEvents, 1)
	assert.Equal(t, "t1", guestEvents[0].AssignmentByPlayer["guest"])
}

func TestSwitchingRoomsLeavesTheOldOne(t *testing.T) {
	env := newDispatchEnv()
	sess := env.connect("p1")
	stayer := env.connect("p2")
	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "OLD"})
	env.dispatch(stayer, ClientMessage{Type: "join", RoomID: "OLD"})

	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "NEW"})

	assert.Equal(t, "NEW", sess.RoomCode)
	oldRoom, ok := env.store.Get("OLD")
	require.True(t, ok)
	oldRoom.Mu.Lock()
	assert.NotContains(t, oldRoom.Participants, "p1")
	assert.Equal(t, "p2", oldRoom.HostID, "leaving hands the old room to the remaining member")
	oldRoom.Mu.Unlock()

	// Leaving the only room behind evicts it.
	env.dispatch(stayer, ClientMessage{Type: "join", RoomID: "NEW"})
	_, ok = env.store.Get("OLD")
	assert.False(t, ok)
}

func TestRejoinSameRoomRefreshesName(t *testing.T) {
	env := newDispatchEnv()
	sess := env.connect("p1")
	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "R", Name: "Alice"})
	drain(sess)

	env.dispatch(sess, ClientMessage{Type: "join", RoomID: "R", Name: "Alicia"})

	events := drain(sess)
	require.Len(t, events, 2)
	assert.Equal(t, room.EventJoined, events[0].Type)
	r, _ := env.store.Get("R")
	r.Mu.Lock()
	defer r.Mu.Unlock()
	assert.Equal(t, "Alicia", r.Participants["p1"].Name)
	assert.Len(t, r.Participants, 1, "rejoin does not duplicate membership")
}
