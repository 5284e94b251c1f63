package relay

import (
	"fmt"
	"log/slog"
)

// Command phrases, as sent by the browser's voice and manual controls.
const (
	PhraseStart  = "start irrigation"
	PhraseStop   = "stop irrigation"
	PhraseStatus = "check status"
)

// Tokens published on the command topic. The device firmware matches these
// strings exactly.
const (
	tokenStart = "START"
	tokenStop  = "STOP"
)

// Command origins, recorded with the irrigation event history.
const (
	OriginManual = "manual"
	OriginVoice  = "voice"
)

// Publisher sends one payload to one broker topic.
type Publisher interface {
	Publish(topic, payload string) error
}

// EventRecorder appends an irrigation event to a user's history. Recording
// is best-effort from the commander's point of view.
type EventRecorder interface {
	Append(userID, kind string, details map[string]any) error
}

// Result is what the command endpoint returns to the caller. Status is
// "success" even for an unrecognized phrase; that is a reply, not an error.
type Result struct {
	Status  string    `json:"status"`
	Message string    `json:"message"`
	Data    *Snapshot `json:"data,omitempty"`
}

// Commander validates user-issued commands, publishes them to the device
// and mirrors them to every connected viewer.
type Commander struct {
	topic  string
	pub    Publisher
	cache  *Cache
	hub    Broadcaster
	events EventRecorder
	logger *slog.Logger
}

func NewCommander(topic string, pub Publisher, cache *Cache, hub Broadcaster, events EventRecorder, logger *slog.Logger) *Commander {
	return &Commander{
		topic:  topic,
		pub:    pub,
		cache:  cache,
		hub:    hub,
		events: events,
		logger: logger,
	}
}

// Issue handles one command phrase on behalf of userID. Start and stop
// publish to the device fire-and-forget; status is a pure read of the cache
// and never touches the broker.
func (c *Commander) Issue(userID, phrase, origin string) Result {
	switch phrase {
	case PhraseStart:
		return c.publishCommand(userID, origin, "start", tokenStart, "Ok, démarrage de l'irrigation.")
	case PhraseStop:
		return c.publishCommand(userID, origin, "stop", tokenStop, "Ok, arrêt de l'irrigation.")
	case PhraseStatus:
		snap := c.cache.Snapshot()
		return Result{
			Status: "success",
			Message: fmt.Sprintf("Voici le dernier état : Température %v, Humidité du sol %v, Humidité de l'air %v.",
				snap.Temperature, snap.Sol, snap.Humidite),
			Data: &snap,
		}
	default:
		return Result{Status: "success", Message: "Commande non reconnue"}
	}
}

func (c *Commander) publishCommand(userID, origin, kind, token, message string) Result {
	if err := c.pub.Publish(c.topic, token); err != nil {
		c.logger.Error("publish irrigation command", "command", kind, "error", err)
		return Result{Status: "error", Message: "Commande indisponible, broker injoignable."}
	}

	// History is best-effort: a persistence outage must not abort a command
	// that already went out to the device.
	if err := c.events.Append(userID, kind, map[string]any{"origin": origin}); err != nil {
		c.logger.Error("record irrigation event", "command", kind, "user", userID, "error", err)
	}

	c.hub.Broadcast(EventIrrigationCommand, IrrigationCommandEvent{Command: kind, Message: message})
	c.logger.Info("irrigation command issued", "command", kind, "origin", origin, "user", userID)
	return Result{Status: "success", Message: message}
}
