// Package button reports whether the button is held right now, as opposed
// to whether an edge has been latched.
package button

// Line is the button input line.
type Line interface {
	Value() (int, error)
}

// Monitor samples the button line. The button pulls the line low when
// pressed (pull-up wiring).
type Monitor struct {
	line Line
}

// NewMonitor returns a Monitor reading line.
func NewMonitor(line Line) *Monitor {
	return &Monitor{line: line}
}

// IsEngaged reports whether the line reads low. A failed read counts as not
// engaged so the caller falls through to idle instead of scanning forever.
func (m *Monitor) IsEngaged() bool {
	v, err := m.line.Value()
	if err != nil {
		return false
	}
	return v == 0
}
