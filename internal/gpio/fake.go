package gpio

import (
	"errors"
	"fmt"
	"sync"
)

var _ Board = (*FakeBoard)(nil)

// Write is one recorded SetValue call.
type Write struct {
	Line  string
	Value int
}

// Journal records writes across many fake lines in call order.
type Journal struct {
	mu     sync.Mutex
	Writes []Write
}

func (j *Journal) record(w Write) {
	j.mu.Lock()
	j.Writes = append(j.Writes, w)
	j.mu.Unlock()
}

// Snapshot returns a copy of the writes so far.
func (j *Journal) Snapshot() []Write {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Write(nil), j.Writes...)
}

// Reset clears recorded writes.
func (j *Journal) Reset() {
	j.mu.Lock()
	j.Writes = nil
	j.mu.Unlock()
}

// FakeOutput is a test double that records written values.
type FakeOutput struct {
	// Name identifies the line in the journal, e.g. "row0".
	Name string

	// Level is the last successfully written value.
	Level int

	// WriteError, if set, is returned by SetValue and the level is left alone.
	WriteError error

	journal *Journal
}

// NewFakeOutput creates a FakeOutput at the given level that logs to j.
// j may be nil.
func NewFakeOutput(name string, level int, j *Journal) *FakeOutput {
	return &FakeOutput{Name: name, Level: level, journal: j}
}

// SetValue records the write.
func (f *FakeOutput) SetValue(value int) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Level = value
	if f.journal != nil {
		f.journal.record(Write{Line: f.Name, Value: value})
	}
	return nil
}

// FakeInput is a test double that returns scripted line levels.
type FakeInput struct {
	// Samples contains scripted levels to return.
	// Each call to Value() consumes the next sample.
	Samples []int

	// index tracks current position in Samples
	index int

	// ReadError, if set, will be returned by Value()
	ReadError error

	mu sync.Mutex
}

// NewFakeInput creates a FakeInput with the given samples.
func NewFakeInput(samples ...int) *FakeInput {
	return &FakeInput{Samples: samples}
}

// Value returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeInput) Value() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Set replaces the script with a single repeating level.
func (f *FakeInput) Set(level int) {
	f.mu.Lock()
	f.Samples = []int{level}
	f.index = 0
	f.mu.Unlock()
}

// FakeBoard is an in-memory Board. Edges are injected with Edge.
type FakeBoard struct {
	Journal    *Journal
	RowLines   []*FakeOutput
	ColLines   []*FakeOutput
	ButtonLine *FakeInput

	// WatchError, if set, is returned by WatchButton.
	WatchError error

	// Closed tracks if Close was called
	Closed bool

	edges edgeChannel
}

// NewFakeBoard creates a dark 5x5 board with the button released.
func NewFakeBoard() *FakeBoard {
	b := &FakeBoard{
		Journal:    &Journal{},
		ButtonLine: NewFakeInput(High),
	}
	for i := 0; i < 5; i++ {
		b.RowLines = append(b.RowLines, NewFakeOutput(fmt.Sprintf("row%d", i), RowOff, b.Journal))
		b.ColLines = append(b.ColLines, NewFakeOutput(fmt.Sprintf("col%d", i), ColOff, b.Journal))
	}
	return b
}

func (b *FakeBoard) Rows() []Output {
	out := make([]Output, len(b.RowLines))
	for i, l := range b.RowLines {
		out[i] = l
	}
	return out
}

func (b *FakeBoard) Cols() []Output {
	out := make([]Output, len(b.ColLines))
	for i, l := range b.ColLines {
		out[i] = l
	}
	return out
}

func (b *FakeBoard) Button() Input {
	return b.ButtonLine
}

// WatchButton arms edge delivery.
func (b *FakeBoard) WatchButton(fn func()) (EdgeSource, error) {
	if b.WatchError != nil {
		return nil, b.WatchError
	}
	b.edges.arm(fn)
	return &b.edges, nil
}

// Edge simulates a falling edge on the button line. The handler runs on the
// calling goroutine.
func (b *FakeBoard) Edge() {
	b.edges.deliver()
}

// Close marks the board as closed.
func (b *FakeBoard) Close() error {
	b.edges.disarm()
	b.Closed = true
	return nil
}
