package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewTopics(t *testing.T) {
	tp := NewTopics("home/desk")
	if tp.System != "home/desk/system" {
		t.Errorf("System: got %q", tp.System)
	}
	if tp.Diag != "home/desk/diag" {
		t.Errorf("Diag: got %q", tp.Diag)
	}
}

func TestNewTopicsDefault(t *testing.T) {
	tp := NewTopics("")
	if tp.System != DefaultPrefix+"/system" {
		t.Errorf("System: got %q", tp.System)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("expected %s, got %s", want, payload)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Event:     "OFFLINE",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["system"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
}

func TestFormatSystemPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 6, 1, 14, 0, 0, 0, loc),
		Event:     "HEARTBEAT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Timestamp != "2026-06-01T12:00:00Z" {
		t.Errorf("timestamp: got %s, want 2026-06-01T12:00:00Z", parsed.System.Timestamp)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFormatDiagPayload(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 8000000, time.UTC)
	payload, err := FormatDiagPayload("Wait for event.", ts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed DiagPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Diag.Line != "Wait for event." {
		t.Errorf("line: got %q", parsed.Diag.Line)
	}
	if parsed.Diag.Timestamp != "2026-03-04T05:06:07.008Z" {
		t.Errorf("timestamp: got %q", parsed.Diag.Timestamp)
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()

	err := f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := f.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Event != "STARTUP" || !events[0].Retained {
		t.Errorf("unexpected event: %+v", events[0])
	}
	if len(f.SystemPayloads) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.SystemPayloads))
	}
}

func TestFakePublisherPublishSystemError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystemError = errors.New("broker down")

	if err := f.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected error")
	}
	if len(f.Events()) != 0 {
		t.Error("failed publish should not be recorded")
	}
}

func TestFakePublisherDiag(t *testing.T) {
	f := NewFakePublisher()
	f.PublishDiag("Hello, World!")
	f.PublishDiag("Wait for event.")

	got := f.Diag()
	if len(got) != 2 || got[0] != "Hello, World!" || got[1] != "Wait for event." {
		t.Errorf("unexpected diag lines: %q", got)
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.PublishDiag("x")
	f.Connected = true
	f.Close()

	f.Reset()

	if len(f.Events()) != 0 || len(f.Diag()) != 0 {
		t.Error("expected recorded events cleared")
	}
	if f.Closed || f.IsConnected() {
		t.Error("expected flags cleared")
	}
}
