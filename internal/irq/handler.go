package irq

import "github.com/sweeney/heart-button/internal/latch"

// Source is the edge-detect hardware handle. ResetEvents acknowledges the
// pending event so the next edge can raise the interrupt again.
type Source interface {
	ResetEvents()
}

// Handler is the button interrupt routine.
type Handler struct {
	src  *Shared[Source]
	edge *latch.Edge
	wake *EventRegister
}

// NewHandler returns a handler that acknowledges src, sets edge and raises
// wake. wake may be nil.
func NewHandler(src *Shared[Source], edge *latch.Edge, wake *EventRegister) *Handler {
	return &Handler{src: src, edge: edge, wake: wake}
}

// Fire runs one interrupt: acknowledge the hardware first, then latch the
// edge. If no source has been installed yet the acknowledge is skipped.
func (h *Handler) Fire() {
	h.src.With(func(s Source) {
		s.ResetEvents()
	})

	h.edge.Set()

	// Any interrupt ends a wait-for-event.
	if h.wake != nil {
		h.wake.Signal()
	}
}
