// Package hub fans cache updates out to every connected browser session over
// websockets and routes user-issued frames back into the application.
package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Inbound event names accepted from browsers.
const (
	eventRequestData = "request_data"
	eventCommand     = "command"
)

// currentDataEvent is the initial snapshot pushed to a session on connect.
const currentDataEvent = "current_data"

// envelope is the frame format exchanged with the browser: a named event
// plus its JSON payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type commandFrame struct {
	Command string `json:"command"`
}

// CommandHandler receives command phrases forwarded over the push channel
// by authenticated viewers.
type CommandHandler func(userID, phrase string)

// Hub maintains the set of live viewer sessions. Each session holds nothing
// but its transport handle and a bounded send queue; all shared state lives
// in the telemetry cache, reached through the snapshot callback.
type Hub struct {
	logger   *slog.Logger
	snapshot func() any

	// Command, when set, receives command frames from authenticated
	// sessions. Assign before serving.
	Command CommandHandler

	mu       sync.Mutex
	sessions map[*Session]struct{}

	upgrader websocket.Upgrader
}

func New(logger *slog.Logger, snapshot func() any) *Hub {
	return &Hub{
		logger:   logger,
		snapshot: snapshot,
		sessions: make(map[*Session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served cross-origin in some deployments;
			// access control happens at the session layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and attaches the session to the hub. The new
// viewer immediately receives a full snapshot, so a late joiner is never
// shown a stale default. userID may be empty for an unauthenticated viewer;
// such sessions receive broadcasts but cannot issue commands.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s := newSession(h, conn, userID)
	h.register(s)
	h.logger.Info("viewer connected", "viewers", h.Count(), "user", userID)

	if frame, err := marshalFrame(currentDataEvent, h.snapshot()); err == nil {
		s.enqueue(frame)
	} else {
		h.logger.Error("marshal initial snapshot", "error", err)
	}

	go s.writePump()
	go s.readPump()
}

// Broadcast delivers an event to every currently connected session,
// best-effort. A slow or dead session drops the frame; it never delays the
// others.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := marshalFrame(event, payload)
	if err != nil {
		h.logger.Error("marshal broadcast", "event", event, "error", err)
		return
	}

	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		if !s.enqueue(frame) {
			h.logger.Warn("viewer send queue full, dropping frame", "event", event, "user", s.userID)
		}
	}
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

// unregister removes the session and closes its queue. Idempotent.
func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, present := h.sessions[s]
	delete(h.sessions, s)
	h.mu.Unlock()
	if present {
		s.close()
		h.logger.Info("viewer disconnected", "viewers", h.Count(), "user", s.userID)
	}
}

// handleFrame processes one inbound browser frame.
func (h *Hub) handleFrame(s *Session, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Warn("dropping malformed viewer frame", "error", err)
		return
	}

	switch env.Event {
	case eventRequestData:
		if frame, err := marshalFrame(currentDataEvent, h.snapshot()); err == nil {
			s.enqueue(frame)
		}
	case eventCommand:
		if s.userID == "" {
			h.logger.Warn("ignoring command from unauthenticated viewer")
			return
		}
		if h.Command == nil {
			return
		}
		var cmd commandFrame
		if err := json.Unmarshal(env.Data, &cmd); err != nil {
			h.logger.Warn("dropping malformed command frame", "error", err)
			return
		}
		h.Command(s.userID, cmd.Command)
	default:
		h.logger.Debug("unknown viewer event", "event", env.Event)
	}
}

func marshalFrame(event string, payload any) ([]byte, error) {
	env := envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}
