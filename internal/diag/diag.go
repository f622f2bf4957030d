// Package diag is the one-way diagnostic text channel. It carries the boot
// banner and the idle notice, nothing else. Operational logging goes through
// the log package instead.
package diag

import (
	"io"
	"log"
	"sync"
)

// Lines written by the controller.
const (
	Hello        = "Hello, World!"
	WaitForEvent = "Wait for event."
)

// lineEnd terminates every line, matching the board UART convention.
const lineEnd = "\r\n"

// Mirror receives a copy of every line, e.g. an MQTT diagnostic topic.
type Mirror interface {
	PublishDiag(line string)
}

// Channel fans diagnostic lines out to writers and mirrors. Write failures
// are dropped; the first failure per writer is logged.
type Channel struct {
	mu      sync.Mutex
	outs    []io.Writer
	failed  []bool
	mirrors []Mirror
}

// New creates a Channel writing to outs.
func New(outs ...io.Writer) *Channel {
	return &Channel{
		outs:   outs,
		failed: make([]bool, len(outs)),
	}
}

// AddMirror registers m to receive every subsequent line.
func (c *Channel) AddMirror(m Mirror) {
	c.mu.Lock()
	c.mirrors = append(c.mirrors, m)
	c.mu.Unlock()
}

// Println writes line followed by CRLF.
func (c *Channel) Println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := []byte(line + lineEnd)
	for i, w := range c.outs {
		if _, err := w.Write(b); err != nil && !c.failed[i] {
			log.Printf("diag: write failed, further errors suppressed: %v", err)
			c.failed[i] = true
		}
	}
	for _, m := range c.mirrors {
		m.PublishDiag(line)
	}
}
