package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedEvent struct {
	event   string
	payload any
}

// fakeBroadcaster records events. Broadcast is safe to call from another
// goroutine, as the relay's Run loop does.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeBroadcaster) Broadcast(event string, payload any) {
	f.mu.Lock()
	f.events = append(f.events, recordedEvent{event: event, payload: payload})
	f.mu.Unlock()
}

func (f *fakeBroadcaster) recorded() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEvent(nil), f.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRelay(t *testing.T) (*Relay, *Cache, *fakeBroadcaster) {
	t.Helper()
	cache := NewCache()
	hub := &fakeBroadcaster{}
	r := New(Config{
		BrokerURL:     "tcp://127.0.0.1:1883",
		ClientID:      "test",
		DataTopic:     "irrigateq/esp32/data",
		StatusTopic:   "irrigateq/esp32/status",
		CommandTopic:  "irrigateq/flask/command",
		RetryInterval: 5 * time.Second,
		KeepAlive:     30 * time.Second,
		PingTimeout:   10 * time.Second,
	}, cache, hub, discardLogger())
	return r, cache, hub
}

func TestRunRetriesUntilCancelled(t *testing.T) {
	// Nothing listens on this port, so every connect attempt fails and the
	// loop has to keep retrying at the configured interval.
	cache := NewCache()
	hub := &fakeBroadcaster{}
	r := New(Config{
		BrokerURL:     "tcp://127.0.0.1:39999",
		ClientID:      "test-retry",
		DataTopic:     "irrigateq/esp32/data",
		StatusTopic:   "irrigateq/esp32/status",
		CommandTopic:  "irrigateq/flask/command",
		RetryInterval: 50 * time.Millisecond,
		KeepAlive:     30 * time.Second,
		PingTimeout:   10 * time.Second,
	}, cache, hub, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(10 * time.Second)
	for len(hub.recorded()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("saw %d broadcasts; want at least 2 retry announcements", len(hub.recorded()))
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after cancel")
	}

	for i, ev := range hub.recorded() {
		if ev.event != EventBrokerStatus {
			t.Fatalf("event %d = %q; want %q", i, ev.event, EventBrokerStatus)
		}
		bs, ok := ev.payload.(BrokerStatusEvent)
		if !ok {
			t.Fatalf("event %d payload type %T", i, ev.payload)
		}
		if bs.Status != "reconnecting" {
			t.Errorf("event %d status = %q; want reconnecting", i, bs.Status)
		}
		if bs.Error == "" {
			t.Errorf("event %d carries no failure detail", i)
		}
	}

	if got := cache.Snapshot().BrokerStatus; !strings.Contains(got, "reconnexion") {
		t.Errorf("broker status = %q; want the reconnexion diagnostic", got)
	}
}

func TestDispatchTelemetry(t *testing.T) {
	r, cache, hub := testRelay(t)

	r.dispatch("irrigateq/esp32/data", []byte(`{"temperature": 23.1, "humidite": 50, "sol": "40%"}`))

	snap := cache.Snapshot()
	if snap.Temperature != json.Number("23.1") {
		t.Errorf("temperature = %#v; want json.Number 23.1", snap.Temperature)
	}
	if snap.Humidite != json.Number("50") {
		t.Errorf("humidite = %#v; want json.Number 50", snap.Humidite)
	}
	if snap.Sol != "40%" {
		t.Errorf("sol = %#v; want 40%%", snap.Sol)
	}
	if snap.LastUpdate == nil {
		t.Error("last update not set")
	}

	if len(hub.events) != 1 {
		t.Fatalf("got %d events; want 1", len(hub.events))
	}
	if hub.events[0].event != EventSensorUpdate {
		t.Errorf("event = %q; want %q", hub.events[0].event, EventSensorUpdate)
	}
	se, ok := hub.events[0].payload.(SensorEvent)
	if !ok {
		t.Fatalf("payload type %T", hub.events[0].payload)
	}
	if se.Temperature != json.Number("23.1") || se.Humidite != json.Number("50") || se.Sol != "40%" {
		t.Errorf("sensor event payload = %+v", se)
	}
}

func TestDispatchPartialTelemetryKeepsOtherFields(t *testing.T) {
	r, cache, _ := testRelay(t)

	r.dispatch("irrigateq/esp32/data", []byte(`{"temperature": 21, "humidite": 55, "sol": "30%"}`))
	r.dispatch("irrigateq/esp32/data", []byte(`{"sol": "28%"}`))

	snap := cache.Snapshot()
	if snap.Sol != "28%" {
		t.Errorf("sol = %v; want 28%%", snap.Sol)
	}
	if snap.Temperature != json.Number("21") {
		t.Errorf("temperature = %v; want 21 (kept from earlier message)", snap.Temperature)
	}
}

func TestDispatchMalformedPayloadDropped(t *testing.T) {
	r, cache, hub := testRelay(t)

	r.dispatch("irrigateq/esp32/data", []byte(`{"temperature": 20}`))
	before := cache.Snapshot()

	for _, payload := range []string{`not json`, `[1,2,3]`, `42`, ``} {
		r.dispatch("irrigateq/esp32/data", []byte(payload))
	}

	after := cache.Snapshot()
	if after != before {
		t.Errorf("cache changed by malformed payloads: %+v -> %+v", before, after)
	}
	if len(hub.events) != 1 {
		t.Errorf("malformed payloads must not broadcast; got %d events", len(hub.events))
	}

	// The loop keeps processing valid messages afterwards.
	r.dispatch("irrigateq/esp32/data", []byte(`{"temperature": 25}`))
	if got := cache.Snapshot().Temperature; got != json.Number("25") {
		t.Errorf("temperature after recovery = %v; want 25", got)
	}
}

func TestDispatchStatusStoredVerbatim(t *testing.T) {
	r, cache, hub := testRelay(t)

	r.dispatch("irrigateq/esp32/status", []byte("online"))

	if got := cache.Snapshot().DeviceStatus; got != "online" {
		t.Errorf("device status = %q; want online", got)
	}
	if len(hub.events) != 1 || hub.events[0].event != EventDeviceStatus {
		t.Fatalf("events = %+v; want one %s", hub.events, EventDeviceStatus)
	}
	if se := hub.events[0].payload.(DeviceStatusEvent); se.Status != "online" {
		t.Errorf("status payload = %+v", se)
	}
}

func TestDispatchUnknownTopicIgnored(t *testing.T) {
	r, cache, hub := testRelay(t)

	r.dispatch("irrigateq/other", []byte(`{"temperature": 99}`))

	if got := cache.Snapshot().Temperature; got != nil {
		t.Errorf("unexpected topic updated the cache: %v", got)
	}
	if len(hub.events) != 0 {
		t.Errorf("unexpected topic broadcast events: %+v", hub.events)
	}
}

func TestDecodeTelemetryPermissive(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    TelemetryUpdate
		wantErr bool
	}{
		{
			name:    "numbers and string",
			payload: `{"temperature": 23.1, "humidite": 50, "sol": "40%"}`,
			want:    TelemetryUpdate{Temperature: json.Number("23.1"), Humidite: json.Number("50"), Sol: "40%"},
		},
		{
			name:    "numeric strings accepted as-is",
			payload: `{"temperature": "22", "humidite": "45.5"}`,
			want:    TelemetryUpdate{Temperature: "22", Humidite: "45.5"},
		},
		{
			name:    "extra keys ignored",
			payload: `{"temperature": 20, "lumiere": "forte"}`,
			want:    TelemetryUpdate{Temperature: json.Number("20")},
		},
		{
			name:    "empty object",
			payload: `{}`,
			want:    TelemetryUpdate{},
		},
		{name: "not an object", payload: `"online"`, wantErr: true},
		{name: "truncated", payload: `{"temperature":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeTelemetry([]byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decode(%q) succeeded; want error", tt.payload)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode(%q): %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("decode(%q) = %+v; want %+v", tt.payload, got, tt.want)
			}
		})
	}
}
