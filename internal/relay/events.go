package relay

// Event names pushed to browsers. These are part of the browser protocol the
// dashboard front-end already handles; do not rename without updating the
// client scripts. The connect-time current_data event belongs to the hub,
// which emits it without the relay's involvement.
const (
	EventSensorUpdate      = "sensor_update"
	EventDeviceStatus      = "esp32_status"
	EventBrokerStatus      = "mqtt_status"
	EventIrrigationCommand = "irrigation_command"
	EventNewImage          = "new_image"
)

// Broadcaster is the push channel to connected browsers. Delivery is
// best-effort; the relay never waits on viewers.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// SensorEvent mirrors the fields of the inbound data message that triggered
// it, plus the refreshed cache timestamp. Absent fields broadcast as null.
type SensorEvent struct {
	Temperature any     `json:"temperature"`
	Humidite    any     `json:"humidite"`
	Sol         any     `json:"sol"`
	Timestamp   *string `json:"timestamp"`
}

// DeviceStatusEvent carries the device's status payload verbatim.
type DeviceStatusEvent struct {
	Status string `json:"status"`
}

// BrokerStatusEvent reports our own connection to the broker.
type BrokerStatusEvent struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// IrrigationCommandEvent tells every viewer a command was issued, so the
// issuing client sees immediate feedback without waiting for a device echo.
type IrrigationCommandEvent struct {
	Command string `json:"command"`
	Message string `json:"message"`
}

// NewImageEvent announces a freshly uploaded plant image.
type NewImageEvent struct {
	Filename string `json:"filename"`
}
