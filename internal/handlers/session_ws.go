package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/gallery/internal/session"
	"github.com/snappy-loop/gallery/internal/viewstate"
)

const (
	sessionWSReadLimit    = 16 << 10
	sessionWSReadTimeout  = 90 * time.Second
	sessionWSPingInterval = 30 * time.Second
	sessionWSWriteTimeout = 10 * time.Second
)

var sessionWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// sessionWSOutMessage is the JSON shape sent to the client.
type sessionWSOutMessage struct {
	Type  string           `json:"type"` // state, error, closed
	State *viewstate.State `json:"state,omitempty"`
	Error string           `json:"error,omitempty"`
}

// SessionWS handles GET /v1/sessions/{id}/ws. The socket pushes every state
// change and accepts client actions. When the socket goes away the view is
// dismissed, which cancels its requests and releases its narration.
func (h *Handler) SessionWS(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "session")
	if !ok {
		return
	}
	states, unsubscribe, err := h.sessions.Subscribe(id)
	if err != nil {
		writeServiceError(w, err, "failed to subscribe")
		return
	}

	conn, err := sessionWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		unsubscribe()
		log.Warn().Err(err).Msg("session ws upgrade failed")
		return
	}
	defer conn.Close()
	defer func() {
		unsubscribe()
		h.dismiss(id)
	}()

	replies := make(chan sessionWSOutMessage, 4)
	readerDone := make(chan struct{})
	stop := make(chan struct{})
	defer close(stop)
	go h.readSessionWS(conn, id, replies, readerDone, stop)

	ping := time.NewTicker(sessionWSPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-readerDone:
			return
		case st, ok := <-states:
			if !ok {
				_ = writeWSJSON(conn, sessionWSOutMessage{Type: "closed"})
				return
			}
			if err := writeWSJSON(conn, sessionWSOutMessage{Type: "state", State: &st}); err != nil {
				log.Debug().Err(err).Msg("session ws write")
				return
			}
		case msg := <-replies:
			if err := writeWSJSON(conn, msg); err != nil {
				log.Debug().Err(err).Msg("session ws write")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(sessionWSWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// readSessionWS applies client actions until the connection fails. Results
// reach the client as state messages; only rejections are replied to.
func (h *Handler) readSessionWS(conn *websocket.Conn, id uuid.UUID, replies chan<- sessionWSOutMessage, done, stop chan struct{}) {
	defer close(done)

	conn.SetReadLimit(sessionWSReadLimit)
	conn.SetReadDeadline(time.Now().Add(sessionWSReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(sessionWSReadTimeout))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("session ws read")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(sessionWSReadTimeout))

		var reply *sessionWSOutMessage
		var a viewstate.Action
		if err := json.Unmarshal(raw, &a); err != nil {
			reply = &sessionWSOutMessage{Type: "error", Error: "invalid JSON: " + err.Error()}
		} else if _, err := h.applyClientAction(context.Background(), id, a); err != nil {
			reply = &sessionWSOutMessage{Type: "error", Error: err.Error()}
		}
		if reply == nil {
			continue
		}
		select {
		case replies <- *reply:
		case <-stop:
			return
		}
	}
}

// dismiss closes the detail view and the create dialog of a session whose
// socket went away.
func (h *Handler) dismiss(id uuid.UUID) {
	ctx := context.Background()
	for _, t := range []viewstate.ActionType{viewstate.ActionCloseStory, viewstate.ActionCloseCreate} {
		if _, err := h.sessions.Dispatch(ctx, id, viewstate.Action{Type: t}); err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to dismiss session view")
			}
			return
		}
	}
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(sessionWSWriteTimeout))
	return conn.WriteJSON(v)
}
