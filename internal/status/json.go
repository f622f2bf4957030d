package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/heart-button/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Engaged       bool         `json:"engaged"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of loop counters.
type CountsJSON struct {
	Interrupts uint64 `json:"interrupts"`
	Edges      uint64 `json:"edges"`
	Passes     uint64 `json:"passes"`
	Pulses     uint64 `json:"pulses"`
	Idles      uint64 `json:"idles"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend     string `json:"backend"`
	Chip        string `json:"chip"`
	Scan        string `json:"scan"`
	Serial      string `json:"serial,omitempty"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

// StateString returns the loop state for display, "STARTING" before the
// first iteration.
func (s Snapshot) StateString() string {
	switch s.Action {
	case "":
		return "STARTING"
	case logic.ActionScan:
		return "SCANNING"
	default:
		return "IDLE"
	}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         snap.StateString(),
		Engaged:       snap.Engaged,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Interrupts: snap.Counts.Interrupts,
			Edges:      snap.Counts.Edges,
			Passes:     snap.Counts.Passes,
			Pulses:     snap.Counts.Pulses,
			Idles:      snap.Counts.Idles,
		},
		Config: ConfigJSON{
			Backend:     snap.Config.Backend,
			Chip:        snap.Config.Chip,
			Scan:        snap.Config.Scan,
			Serial:      snap.Config.Serial,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
