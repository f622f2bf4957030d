package main

import (
	"context"
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/sweeney/heart-button/internal/config"
	"github.com/sweeney/heart-button/internal/diag"
	"github.com/sweeney/heart-button/internal/display"
	"github.com/sweeney/heart-button/internal/gpio"
	"github.com/sweeney/heart-button/internal/mqtt"
	"github.com/sweeney/heart-button/internal/status"
	"github.com/sweeney/heart-button/internal/web"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	oldBackend, oldHeartbeat, oldScan := backend, heartbeat, scan
	t.Cleanup(func() { backend, heartbeat, scan = oldBackend, oldHeartbeat, oldScan })

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringVar(&backend, "backend", backend, "")
	fs.StringVar(&scan, "scan", scan, "")
	fs.DurationVar(&heartbeat, "heartbeat", heartbeat, "")
	if err := fs.Parse([]string{"--backend=periph", "--heartbeat=1m"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := config.Default()
	cfg.Scan = "row"
	applyFlags(fs, cfg)

	if cfg.Backend != config.BackendPeriph {
		t.Errorf("expected periph backend, got %q", cfg.Backend)
	}
	if time.Duration(cfg.MQTT.Heartbeat) != time.Minute {
		t.Errorf("expected 1m heartbeat, got %v", time.Duration(cfg.MQTT.Heartbeat))
	}
	if cfg.Scan != "row" {
		t.Errorf("unset flag must not override the profile, got scan %q", cfg.Scan)
	}
}

// recordingDiag is a goroutine-safe diagnostic sink.
type recordingDiag struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingDiag) Println(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()
}

func (r *recordingDiag) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

type harness struct {
	board   *gpio.FakeBoard
	pub     *mqtt.FakePublisher
	diag    *recordingDiag
	tracker *status.Tracker
	tick    chan time.Time
	sig     chan os.Signal
	done    chan error
}

// startDaemon runs a daemon over a fake board. pub may be nil to run
// without MQTT.
func startDaemon(t *testing.T, board *gpio.FakeBoard, pub *mqtt.FakePublisher) *harness {
	t.Helper()
	h := &harness{
		board:   board,
		pub:     pub,
		diag:    &recordingDiag{},
		tracker: status.NewTracker(time.Now(), status.Config{Backend: "gpiocdev"}),
		tick:    make(chan time.Time),
		sig:     make(chan os.Signal, 1),
		done:    make(chan error, 1),
	}

	ctrl, err := newController(board, display.ScanCell, h.diag, h.tracker)
	if err != nil {
		t.Fatalf("newController: %v", err)
	}
	h.tracker.SetInterruptCounter(ctrl.Interrupts)
	d := &daemon{ctrl: ctrl, tracker: h.tracker, tick: h.tick}
	if pub != nil {
		d.pub, d.mqttStatus = pub, pub
	}

	go func() { h.done <- d.run(context.Background(), h.sig) }()
	return h
}

func (h *harness) stop(t *testing.T, s os.Signal) {
	t.Helper()
	h.sig <- s
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("daemon returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewControllerWatchError(t *testing.T) {
	board := gpio.NewFakeBoard()
	board.WatchError = errors.New("busy")

	if _, err := newController(board, display.ScanCell, &recordingDiag{}, nil); err == nil {
		t.Fatal("expected error when the button cannot be watched")
	}
}

func TestDaemonEdgeRendersOnePass(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	h := startDaemon(t, gpio.NewFakeBoard(), pub)

	waitFor(t, func() bool { return h.diag.count() == 1 })
	if n := len(h.board.Journal.Snapshot()); n != 0 {
		t.Fatalf("expected no writes while idle, got %d", n)
	}

	h.board.Edge()
	waitFor(t, func() bool { return h.diag.count() == 2 })

	if n := len(h.board.Journal.Snapshot()); n != 40 {
		t.Errorf("expected 40 writes for one heart pass, got %d", n)
	}
	snap := h.tracker.Snapshot()
	if snap.Counts.Interrupts != 1 || snap.Counts.Edges != 1 || snap.Counts.Passes != 1 || snap.Counts.Pulses != 10 {
		t.Errorf("unexpected counts: %+v", snap.Counts)
	}

	h.stop(t, syscall.SIGTERM)

	events := pub.Events()
	if len(events) != 2 {
		t.Fatalf("expected STARTUP and SHUTDOWN, got %d events", len(events))
	}
	if events[0].Event != "STARTUP" || !events[0].Retained {
		t.Errorf("expected retained STARTUP, got %+v", events[0])
	}
	if events[1].Event != "SHUTDOWN" || events[1].Reason != "SIGTERM" || !events[1].Retained {
		t.Errorf("expected retained SHUTDOWN/SIGTERM, got %+v", events[1])
	}
}

func TestDaemonHeldButtonScansUntilReleased(t *testing.T) {
	board := gpio.NewFakeBoard()
	board.ButtonLine.Set(gpio.Low)
	h := startDaemon(t, board, nil)

	waitFor(t, func() bool { return h.tracker.Snapshot().Counts.Passes >= 3 })
	if h.diag.count() != 0 {
		t.Errorf("no idle line expected while held, got %d", h.diag.count())
	}

	board.ButtonLine.Set(gpio.High)
	waitFor(t, func() bool { return h.diag.count() == 1 })

	if s := h.tracker.Snapshot(); s.Counts.Edges != 0 {
		t.Errorf("holding the button latches no edge, got %d", s.Counts.Edges)
	}

	h.stop(t, syscall.SIGINT)
}

func TestDaemonHTTPListenError(t *testing.T) {
	board := gpio.NewFakeBoard()
	tracker := status.NewTracker(time.Now(), status.Config{})
	ctrl, err := newController(board, display.ScanCell, &recordingDiag{}, tracker)
	if err != nil {
		t.Fatalf("newController: %v", err)
	}
	d := &daemon{ctrl: ctrl, tracker: tracker, srv: web.New("256.0.0.1:80", tracker)}

	done := make(chan error, 1)
	go func() { done <- d.run(context.Background(), make(chan os.Signal)) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error when the status server cannot listen")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not stop after listen failure")
	}
}

func TestDaemonShutdownBlanksDisplay(t *testing.T) {
	board := gpio.NewFakeBoard()
	h := startDaemon(t, board, nil)
	waitFor(t, func() bool { return h.diag.count() == 1 })

	// Leave a line away from rest, as a failed write would.
	board.RowLines[2].Level = gpio.High

	h.stop(t, syscall.SIGINT)

	for i, l := range board.RowLines {
		if l.Level != gpio.RowOff {
			t.Errorf("row %d: expected %d after shutdown, got %d", i, gpio.RowOff, l.Level)
		}
	}
	for i, l := range board.ColLines {
		if l.Level != gpio.ColOff {
			t.Errorf("col %d: expected %d after shutdown, got %d", i, gpio.ColOff, l.Level)
		}
	}
}

func TestDaemonEdgeAfterShutdownIgnored(t *testing.T) {
	board := gpio.NewFakeBoard()
	h := startDaemon(t, board, nil)
	waitFor(t, func() bool { return h.diag.count() == 1 })
	h.stop(t, syscall.SIGINT)

	before := len(board.Journal.Snapshot())
	board.Edge()
	if after := len(board.Journal.Snapshot()); after != before {
		t.Errorf("edge after shutdown caused %d writes", after-before)
	}
}

func TestDaemonHeartbeat(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkIP, "10.0.0.7")

	pub := mqtt.NewFakePublisher()
	pub.Connected = true
	h := startDaemon(t, gpio.NewFakeBoard(), pub)
	waitFor(t, func() bool { return h.diag.count() == 1 })

	h.tick <- time.Now()
	waitFor(t, func() bool { return len(pub.Events()) == 2 })

	hb := pub.Events()[1]
	if hb.Event != "HEARTBEAT" {
		t.Fatalf("expected HEARTBEAT, got %s", hb.Event)
	}
	if hb.Retained {
		t.Error("heartbeat should not be retained")
	}
	snap := h.tracker.Snapshot()
	if !snap.MQTTConnected {
		t.Error("expected tracker to record MQTT connected")
	}
	if snap.Network == nil || snap.Network.IP != "10.0.0.7" {
		t.Errorf("expected network refreshed on heartbeat, got %+v", snap.Network)
	}

	h.stop(t, syscall.SIGTERM)
}

func TestDaemonPublishErrorDoesNotStop(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	pub.PublishSystemError = errors.New("broker down")
	h := startDaemon(t, gpio.NewFakeBoard(), pub)

	waitFor(t, func() bool { return h.diag.count() == 1 })
	h.board.Edge()
	waitFor(t, func() bool { return h.diag.count() == 2 })

	h.stop(t, syscall.SIGTERM)
}

func TestDaemonMirrorsDiagToMQTT(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	dg := diag.New()
	dg.AddMirror(pub)

	board := gpio.NewFakeBoard()
	tracker := status.NewTracker(time.Now(), status.Config{})
	ctrl, err := newController(board, display.ScanCell, dg, tracker)
	if err != nil {
		t.Fatalf("newController: %v", err)
	}
	d := &daemon{ctrl: ctrl, pub: pub, mqttStatus: pub, tracker: tracker}

	sig := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- d.run(context.Background(), sig) }()

	waitFor(t, func() bool { return len(pub.Diag()) == 1 })
	if got := pub.Diag()[0]; got != diag.WaitForEvent {
		t.Errorf("expected %q mirrored, got %q", diag.WaitForEvent, got)
	}

	sig <- syscall.SIGTERM
	if err := <-done; err != nil {
		t.Errorf("daemon returned error: %v", err)
	}
}

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("expected SIGINT, got %s", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("expected SIGTERM, got %s", got)
	}
	if got := signalName(syscall.SIGHUP); got != "UNKNOWN" {
		t.Errorf("expected UNKNOWN, got %s", got)
	}
}

func TestEngagedString(t *testing.T) {
	if engagedString(true) != "ENGAGED" || engagedString(false) != "RELEASED" {
		t.Error("unexpected button state strings")
	}
}
