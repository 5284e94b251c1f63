package hub

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	hub *Hub
	srv *httptest.Server
}

func newTestServer(t *testing.T, snapshot func() any) *testServer {
	t.Helper()
	h := New(discardLogger(), snapshot)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(srv.Close)
	return &testServer{hub: h, srv: srv}
}

func (ts *testServer) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal frame %q: %v", raw, err)
	}
	return env
}

func waitForViewers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("viewers = %d; want %d", h.Count(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConnectReceivesSnapshot(t *testing.T) {
	snapshot := map[string]any{"temperature": "23.1", "sol": "40%"}
	ts := newTestServer(t, func() any { return snapshot })

	conn := ts.dial(t, "u1")
	env := readFrame(t, conn)

	if env.Event != "current_data" {
		t.Fatalf("first event = %q; want current_data", env.Event)
	}
	var got map[string]any
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatal(err)
	}
	if got["temperature"] != "23.1" || got["sol"] != "40%" {
		t.Errorf("snapshot payload = %+v", got)
	}
}

func TestBroadcastReachesAllViewers(t *testing.T) {
	ts := newTestServer(t, func() any { return map[string]any{} })

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = ts.dial(t, "u1")
		readFrame(t, conns[i]) // initial snapshot
	}
	waitForViewers(t, ts.hub, 3)

	ts.hub.Broadcast("sensor_update", map[string]any{"temperature": "25"})

	for i, conn := range conns {
		env := readFrame(t, conn)
		if env.Event != "sensor_update" {
			t.Errorf("conn %d: event = %q", i, env.Event)
		}
	}
}

func TestDeadViewerDoesNotBlockOthers(t *testing.T) {
	ts := newTestServer(t, func() any { return map[string]any{} })

	dead := ts.dial(t, "u1")
	readFrame(t, dead)
	alive := ts.dial(t, "u2")
	readFrame(t, alive)
	waitForViewers(t, ts.hub, 2)

	// Kill one peer without a close handshake, then flood past the dead
	// session's queue. Delivery to the live session must continue.
	dead.UnderlyingConn().Close()
	for i := 0; i < 2*sendQueueSize; i++ {
		ts.hub.Broadcast("sensor_update", map[string]any{"n": i})
	}

	env := readFrame(t, alive)
	if env.Event != "sensor_update" {
		t.Errorf("live viewer got %q; want sensor_update", env.Event)
	}
	waitForViewers(t, ts.hub, 1)
}

func TestRequestDataRepliesToRequestingSessionOnly(t *testing.T) {
	ts := newTestServer(t, func() any { return map[string]any{"sol": "31%"} })

	asker := ts.dial(t, "u1")
	readFrame(t, asker)
	other := ts.dial(t, "u2")
	readFrame(t, other)
	waitForViewers(t, ts.hub, 2)

	if err := asker.WriteJSON(envelope{Event: "request_data"}); err != nil {
		t.Fatal(err)
	}

	env := readFrame(t, asker)
	if env.Event != "current_data" {
		t.Errorf("event = %q; want current_data", env.Event)
	}

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("request_data leaked to another session")
	}
}

func TestCommandFrameForwarded(t *testing.T) {
	ts := newTestServer(t, func() any { return map[string]any{} })

	var mu sync.Mutex
	var gotUser, gotPhrase string
	ts.hub.Command = func(userID, phrase string) {
		mu.Lock()
		gotUser, gotPhrase = userID, phrase
		mu.Unlock()
	}

	conn := ts.dial(t, "user-9")
	readFrame(t, conn)
	waitForViewers(t, ts.hub, 1)

	data, _ := json.Marshal(commandFrame{Command: "start irrigation"})
	if err := conn.WriteJSON(envelope{Event: "command", Data: data}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		user, phrase := gotUser, gotPhrase
		mu.Unlock()
		if user != "" {
			if user != "user-9" || phrase != "start irrigation" {
				t.Errorf("forwarded (%q, %q)", user, phrase)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("command frame never forwarded")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCommandFromUnauthenticatedViewerIgnored(t *testing.T) {
	ts := newTestServer(t, func() any { return map[string]any{} })

	called := make(chan struct{}, 1)
	ts.hub.Command = func(userID, phrase string) { called <- struct{}{} }

	conn := ts.dial(t, "")
	readFrame(t, conn)
	waitForViewers(t, ts.hub, 1)

	data, _ := json.Marshal(commandFrame{Command: "start irrigation"})
	if err := conn.WriteJSON(envelope{Event: "command", Data: data}); err != nil {
		t.Fatal(err)
	}

	select {
	case <-called:
		t.Error("command from unauthenticated viewer was forwarded")
	case <-time.After(200 * time.Millisecond):
	}
}
