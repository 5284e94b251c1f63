package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Browsers only send tiny command frames.
	maxMessageSize = 1024

	// sendQueueSize bounds per-viewer memory; a stalled viewer costs at
	// most this many frames before drops begin.
	sendQueueSize = 32
)

// Session is one live browser connection. Created on connect, destroyed on
// disconnect, and owns no state beyond its transport handle.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	send      chan []byte
	closeOnce sync.Once
}

func newSession(h *Hub, conn *websocket.Conn, userID string) *Session {
	return &Session{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendQueueSize),
	}
}

// enqueue hands a frame to the session's writer without ever blocking the
// caller. Reports false when the frame was dropped.
func (s *Session) enqueue(frame []byte) (queued bool) {
	// The queue may close concurrently with a broadcast; a send on a
	// closed channel counts as a drop, not a failure of the hub.
	defer func() {
		if recover() != nil {
			queued = false
		}
	}()
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// close shuts the send queue exactly once.
func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.send) })
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings. One per session.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.hub.unregister(s)
	}()

	for {
		select {
		case frame, ok := <-s.send:
			if !ok {
				s.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away. One per
// session.
func (s *Session) readPump() {
	defer func() {
		s.hub.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.hub.handleFrame(s, raw)
	}
}
