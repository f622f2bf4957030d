package mqtt

import "sync"

var (
	_ Publisher        = (*FakePublisher)(nil)
	_ ConnectionStatus = (*FakePublisher)(nil)
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// DiagLines contains the mirrored diagnostic lines.
	DiagLines []string

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// PublishDiag records the line.
func (f *FakePublisher) PublishDiag(line string) {
	f.mu.Lock()
	f.DiagLines = append(f.DiagLines, line)
	f.mu.Unlock()
}

// Diag returns a copy of the mirrored lines.
func (f *FakePublisher) Diag() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.DiagLines...)
}

// Events returns a copy of the published system events.
func (f *FakePublisher) Events() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.SystemEvents...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.DiagLines = nil
	f.Closed = false
	f.PublishSystemError = nil
	f.Connected = false
}
