// Package mqtt publishes lifecycle events and mirrors the diagnostic channel
// to an MQTT broker, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// DefaultPrefix is the topic prefix when none is configured.
const DefaultPrefix = "devices/heart-button"

// Topics derives the topic names from a prefix.
type Topics struct {
	System string // lifecycle events, retained
	Diag   string // diagnostic lines
}

// NewTopics returns the topics under prefix.
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Topics{
		System: prefix + "/system",
		Diag:   prefix + "/diag",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishSystem sends a system lifecycle event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishSystem(event SystemEvent) error

	// PublishDiag mirrors one diagnostic line. It never blocks the caller.
	PublishDiag(line string)

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// DiagPayload is the MQTT payload for one diagnostic line.
type DiagPayload struct {
	Diag DiagPayloadInner `json:"diag"`
}

// DiagPayloadInner contains the line and when it was produced.
type DiagPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Line      string `json:"line"`
}

// FormatDiagPayload creates the JSON payload for a diagnostic line.
func FormatDiagPayload(line string, t time.Time) ([]byte, error) {
	return json.Marshal(DiagPayload{
		Diag: DiagPayloadInner{
			Timestamp: t.UTC().Format(time.RFC3339Nano),
			Line:      line,
		},
	})
}
