// Command heart-button renders a heart on a 5x5 LED matrix while a button is
// held or after it is pressed, and otherwise sleeps until the next press.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/heart-button/internal/button"
	"github.com/sweeney/heart-button/internal/config"
	"github.com/sweeney/heart-button/internal/diag"
	"github.com/sweeney/heart-button/internal/display"
	"github.com/sweeney/heart-button/internal/gpio"
	"github.com/sweeney/heart-button/internal/mqtt"
	"github.com/sweeney/heart-button/internal/status"
	"github.com/sweeney/heart-button/internal/web"
)

var (
	configPath = ""
	backend    = string(config.BackendCdev)
	chip       = "gpiochip0"
	scan       = string(display.ScanCell)
	serialDev  = ""
	broker     = ""
	httpAddr   = ":80"
	heartbeat  = 15 * time.Minute
	printState = false
)

func init() {
	pflag.StringVarP(&configPath, "config", "c", configPath, "board profile (TOML)")
	pflag.StringVar(&backend, "backend", backend, `GPIO backend: "gpiocdev" or "periph"`)
	pflag.StringVar(&chip, "chip", chip, "GPIO chip for the gpiocdev backend")
	pflag.StringVar(&scan, "scan", scan, `render pass order: "cell" or "row"`)
	pflag.StringVar(&serialDev, "serial", serialDev, "serial device for diagnostic lines")
	pflag.StringVar(&broker, "broker", broker, "MQTT broker address (empty to disable)")
	pflag.StringVar(&httpAddr, "http", httpAddr, "HTTP status address (empty to disable)")
	pflag.DurationVar(&heartbeat, "heartbeat", heartbeat, "heartbeat interval (0 to disable)")
	pflag.BoolVar(&printState, "print-state", printState, "print the button state and exit")
}

func main() {
	pflag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig reads the profile, if any, then applies flags the user set.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		cfg, err = config.Parse(f)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	applyFlags(pflag.CommandLine, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyFlags overrides cfg with every flag set on the command line.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("backend") {
		cfg.Backend = config.Backend(backend)
	}
	if fs.Changed("chip") {
		cfg.Chip = chip
	}
	if fs.Changed("scan") {
		cfg.Scan = scan
	}
	if fs.Changed("serial") {
		cfg.Diag.Serial = serialDev
	}
	if fs.Changed("broker") {
		cfg.MQTT.Broker = broker
	}
	if fs.Changed("http") {
		cfg.HTTP = httpAddr
	}
	if fs.Changed("heartbeat") {
		cfg.MQTT.Heartbeat = config.Duration(heartbeat)
	}
}

func openBoard(cfg *config.Config) (gpio.Board, error) {
	switch cfg.Backend {
	case config.BackendPeriph:
		return gpio.NewPeriphBoard(cfg.Pins())
	default:
		return gpio.NewCdevBoard(cfg.Chip, cfg.Pins())
	}
}

func run(cfg *config.Config, printState bool) error {
	if printState {
		board, err := openBoard(cfg)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer board.Close()

		fmt.Printf("BUTTON: %s\n", engagedString(button.NewMonitor(board.Button()).IsEngaged()))
		return nil
	}

	// Diagnostic channel
	var outs []io.Writer
	if cfg.Diag.Stdout {
		outs = append(outs, os.Stdout)
	}
	if cfg.Diag.Serial != "" {
		port, err := diag.OpenSerial(cfg.Diag.Serial, cfg.Diag.Baud)
		if err != nil {
			return fmt.Errorf("init diag: %w", err)
		}
		defer port.Close()
		outs = append(outs, port)
	}
	dg := diag.New(outs...)

	// Initialize MQTT. Left as nil interfaces when no broker is configured.
	var (
		pub        mqtt.Publisher
		mqttStatus mqtt.ConnectionStatus
	)
	if cfg.MQTT.Broker != "" {
		rp, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Prefix)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer rp.Close()
		pub, mqttStatus = rp, rp
		dg.AddMirror(rp)
	}

	dg.Println(diag.Hello)

	board, err := openBoard(cfg)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		Backend:     string(cfg.Backend),
		Chip:        cfg.Chip,
		Scan:        cfg.Scan,
		Serial:      cfg.Diag.Serial,
		HeartbeatMs: time.Duration(cfg.MQTT.Heartbeat).Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	mode, err := display.ParseScanMode(cfg.Scan)
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	ctrl, err := newController(board, mode, dg, tracker)
	if err != nil {
		return err
	}
	tracker.SetInterruptCounter(ctrl.Interrupts)

	d := &daemon{
		ctrl:       ctrl,
		pub:        pub,
		mqttStatus: mqttStatus,
		tracker:    tracker,
	}
	if cfg.HTTP != "" {
		d.srv = web.New(cfg.HTTP, tracker)
	}
	if hb := time.Duration(cfg.MQTT.Heartbeat); pub != nil && hb > 0 {
		ticker := time.NewTicker(hb)
		defer ticker.Stop()
		d.tick = ticker.C
	}

	log.Printf("started: backend=%s scan=%s broker=%s http=%s heartbeat=%v",
		cfg.Backend, cfg.Scan, cfg.MQTT.Broker, cfg.HTTP, time.Duration(cfg.MQTT.Heartbeat))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return d.run(context.Background(), sigCh)
}

// daemon runs the controller alongside its optional status surfaces.
type daemon struct {
	ctrl       *controller
	pub        mqtt.Publisher        // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus // nil when MQTT is disabled
	tracker    *status.Tracker
	srv        *web.Server      // nil when HTTP is disabled
	tick       <-chan time.Time // heartbeat ticks, nil when disabled
}

// run publishes STARTUP, runs until a signal arrives or a component fails,
// then blanks the display and publishes SHUTDOWN.
func (d *daemon) run(ctx context.Context, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.publish("STARTUP", "", true)

	var reason string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.ctrl.Run(gctx)
	})

	g.Go(func() error {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			reason = signalName(s)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if d.tick != nil {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-d.tick:
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
					d.publish("HEARTBEAT", "", false)
				}
			}
		})
	}

	if d.srv != nil {
		g.Go(func() error {
			ln, err := d.srv.Listen()
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			log.Printf("http status server listening on %s", ln.Addr())
			if err := d.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return d.srv.Shutdown(context.Background())
		})
	}

	err := g.Wait()

	d.ctrl.Shutdown()
	if reason == "" && err != nil {
		reason = "ERROR"
	}
	d.publish("SHUTDOWN", reason, true)
	return err
}

// publish sends a lifecycle event carrying a full status snapshot. Failures
// are logged and never stop the daemon.
func (d *daemon) publish(event, reason string, retained bool) {
	if d.pub == nil {
		return
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	snap := d.tracker.Snapshot()
	err := d.pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	name := strings.ToLower(event)
	if err != nil {
		log.Printf("failed to publish %s event: %v", name, err)
		return
	}
	log.Printf("published %s event", name)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func engagedString(engaged bool) string {
	if engaged {
		return "ENGAGED"
	}
	return "RELEASED"
}
