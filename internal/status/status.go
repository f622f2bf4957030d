// Package status provides a thread-safe status tracker for the heart-button
// daemon. The foreground loop writes to it as a logic.Observer; HTTP
// handlers and MQTT heartbeats read snapshots.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/heart-button/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Backend     string
	Chip        string
	Scan        string
	Serial      string
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Counts are totals since startup.
type Counts struct {
	Interrupts uint64 // edges reported by the GPIO backend
	Edges      uint64 // latched edges consumed by the loop
	Passes     uint64 // render passes
	Pulses     uint64 // cells pulsed across all passes
	Idles      uint64 // idle-wait entries
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Action        logic.Action
	Engaged       bool
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu         sync.RWMutex
	snap       Snapshot
	interrupts func() uint64
}

var _ logic.Observer = (*Tracker)(nil)

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// ObservePass records a render pass. Called from the loop on every scan.
func (t *Tracker) ObservePass(trigger logic.Trigger, pulses int) {
	t.mu.Lock()
	t.snap.Action = logic.ActionScan
	t.snap.Engaged = trigger.Engaged
	t.snap.Counts.Passes++
	t.snap.Counts.Pulses += uint64(pulses)
	if trigger.Edge {
		t.snap.Counts.Edges++
	}
	t.mu.Unlock()
}

// ObserveIdle records an idle-wait entry.
func (t *Tracker) ObserveIdle() {
	t.mu.Lock()
	t.snap.Action = logic.ActionIdle
	t.snap.Engaged = false
	t.snap.Counts.Idles++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// SetInterruptCounter installs the source of Counts.Interrupts. Edges that
// arrive while one is still latched collapse into it, so Interrupts can run
// ahead of Edges.
func (t *Tracker) SetInterruptCounter(fn func() uint64) {
	t.mu.Lock()
	t.interrupts = fn
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	interrupts := t.interrupts
	t.mu.RUnlock()
	if interrupts != nil {
		s.Counts.Interrupts = interrupts()
	}
	s.Now = time.Now()
	return s
}
