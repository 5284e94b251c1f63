package relay

import (
	"sync"
	"time"
)

// timestampLayout matches the format the dashboard has always displayed for
// the last-update field.
const timestampLayout = "2006-01-02 15:04:05"

// Initial status values shown before the first broker event arrives.
const (
	statusConnecting    = "Connecting..."
	statusDeviceUnknown = "Unknown"
)

// Snapshot is the last-known state of the irrigation device as seen by the
// backend. JSON field names mirror the payloads the existing browser code
// consumes, so /get_data and the websocket events serialize identically to
// what the device deployment already speaks.
type Snapshot struct {
	Temperature  any     `json:"temperature"`
	Humidite     any     `json:"humidite"`
	Sol          any     `json:"sol"`
	LastUpdate   *string `json:"last_update"`
	BrokerStatus string  `json:"mqtt_backend_status"`
	DeviceStatus string  `json:"esp32_mqtt_status"`
}

// TelemetryUpdate carries the fields present in one inbound data message.
// A nil field was absent from the payload and leaves the cached value
// untouched. Values are opaque scalars; the device defines their units and
// format, so no range validation happens here.
type TelemetryUpdate struct {
	Temperature any
	Humidite    any
	Sol         any
}

// Cache is the single shared record of the device's last-known state. All
// reads and writes go through one mutex so a snapshot never observes a
// partially applied update. There is one Cache per process, written only by
// the relay's dispatch loop and read by every HTTP and websocket path.
type Cache struct {
	mu   sync.Mutex
	snap Snapshot

	now func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		snap: Snapshot{
			BrokerStatus: statusConnecting,
			DeviceStatus: statusDeviceUnknown,
		},
		now: time.Now,
	}
}

// ApplyTelemetry overwrites the fields present in the update, refreshes the
// last-update timestamp and returns the resulting snapshot.
func (c *Cache) ApplyTelemetry(u TelemetryUpdate) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	if u.Temperature != nil {
		c.snap.Temperature = u.Temperature
	}
	if u.Humidite != nil {
		c.snap.Humidite = u.Humidite
	}
	if u.Sol != nil {
		c.snap.Sol = u.Sol
	}
	ts := c.now().Format(timestampLayout)
	c.snap.LastUpdate = &ts
	return c.snap
}

// SetBrokerStatus records the state of our own broker connection. It does
// not touch the telemetry fields or their timestamp.
func (c *Cache) SetBrokerStatus(status string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.BrokerStatus = status
	return c.snap
}

// SetDeviceStatus stores the device's own status payload verbatim.
func (c *Cache) SetDeviceStatus(status string) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.DeviceStatus = status
	return c.snap
}

// Snapshot returns a copy of the current state, taken under the same lock
// as writes.
func (c *Cache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}
