package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// diagBufferSize bounds the diagnostic lines held while disconnected.
const diagBufferSize = 256

// client is the part of paho.Client the publisher uses after connecting.
type client interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client client
	topics Topics

	mu  sync.Mutex
	buf *ringBuffer
}

var (
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
)

// NewRealPublisher creates a publisher connected to the given broker.
// The broker is told to publish a retained OFFLINE event on the system topic
// if the connection drops without a clean disconnect.
func NewRealPublisher(broker, clientID, prefix string) (*RealPublisher, error) {
	p := &RealPublisher{
		topics: NewTopics(prefix),
		buf:    newRingBuffer(diagBufferSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "OFFLINE",
		Reason:    "CONNECTION_LOST",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.topics.System, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", broker)
			p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	c := paho.NewClient(opts)
	p.client = c
	token := c.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		c.Disconnect(0)
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	token := p.client.Publish(p.topics.System, 1, event.Retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// PublishDiag mirrors a diagnostic line at QoS 0 without waiting for the
// broker. Lines produced while disconnected are buffered and replayed on
// reconnect.
func (p *RealPublisher) PublishDiag(line string) {
	payload, err := FormatDiagPayload(line, time.Now())
	if err != nil {
		log.Printf("mqtt: format diag payload: %v", err)
		return
	}
	msg := bufferedMsg{topic: p.topics.Diag, payload: payload}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		return
	}
	p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
}

// flush replays buffered diag lines. p.mu is held for the whole replay so a
// concurrent PublishDiag cannot overtake the backlog.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs, dropped := p.buf.drainAll()
	if dropped > 0 {
		log.Printf("mqtt: %d diag lines dropped while offline", dropped)
	}
	for _, m := range msgs {
		p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if len(msgs) > 0 {
		log.Printf("mqtt: replayed %d buffered diag lines", len(msgs))
	}
}

// IsConnected reports whether the client currently has an open connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
