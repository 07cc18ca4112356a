// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bidroom/bidroom/internal/room"
	"github.com/bidroom/bidroom/internal/session"
)

// WSHandler upgrades the connection, mints an opaque participant identifier
// for its lifetime, registers the session, and runs the read loop. Room
// membership is established by the first successful join message; the
// participant is removed from their room when the read loop exits.
func WSHandler(logger *logrus.Logger, store *room.Store, registry *session.Registry, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"auction"},
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "auction" {
			c.Close(BadSubprotocolError, "client must speak the auction subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		participantID := uuid.NewString()
		sess := session.New(participantID, cancel)
		registry.Add(sess)
		logger.Infof("participant %s connected from %s", participantID, r.RemoteAddr)

		go writePump(ctx, c, sess, logger)

		readPump(ctx, c, logger, store, registry, sess)

		// Cleanup: leave the room first so no further broadcasts target this
		// session, then drop the session itself.
		if sess.RoomCode != "" {
			if rm, ok := store.Get(sess.RoomCode); ok {
				rm.Disconnect(participantID)
			}
		}
		registry.Remove(participantID)
		logger.Infof("participant %s disconnected", participantID)
	}
}

// readPump decodes inbound frames and feeds them to dispatch until the
// connection closes. Malformed frames are discarded without notification.
func readPump(ctx context.Context, c *websocket.Conn, logger *logrus.Logger, store *room.Store, registry *session.Registry, sess *session.Session) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Infof("participant %s closed the connection", sess.ParticipantID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("participant %s read error: %v", sess.ParticipantID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Warnf("participant %s sent non-text frame, ignoring", sess.ParticipantID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("participant %s sent invalid json, discarding: %v", sess.ParticipantID, err)
			continue
		}
		dispatch(logger, store, registry, sess, msg)
	}
}

// writePump drains the session's outbound channel onto the socket and keeps
// the connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, sess *session.Session, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sess.Out:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("participant %s: failed to marshal %s event: %v", sess.ParticipantID, ev.Type, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("participant %s: write failed: %v", sess.ParticipantID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("participant %s: ping failed, assuming disconnect: %v", sess.ParticipantID, err)
				return
			}
		}
	}
}
