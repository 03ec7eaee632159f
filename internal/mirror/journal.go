package mirror

import "github.com/roach88/layersync/internal/ir"

// Tracer receives every propagation a mirror performs.
type Tracer interface {
	Trace(ir.TraceEvent)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(ir.TraceEvent)

// Trace calls f(ev).
func (f TracerFunc) Trace(ev ir.TraceEvent) {
	f(ev)
}

// Journal is an in-memory Tracer.
type Journal struct {
	events []ir.TraceEvent
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Trace appends ev.
func (j *Journal) Trace(ev ir.TraceEvent) {
	j.events = append(j.events, ev)
}

// Events returns a copy of the recorded events in order. Never nil.
func (j *Journal) Events() []ir.TraceEvent {
	out := make([]ir.TraceEvent, len(j.events))
	copy(out, j.events)
	return out
}

// Len returns the number of recorded events.
func (j *Journal) Len() int {
	return len(j.events)
}

// Reset drops every recorded event.
func (j *Journal) Reset() {
	j.events = nil
}
