// Package progress carries ingestion progress from the controlling stage to
// whoever renders it. Loaded never decreases within one Tracker.
package progress

import (
	"sync"
)

// Total is the fixed scale every Event is reported against.
const Total = 100

// Event is one progress report.
type Event struct {
	Total   int    `json:"total"`
	Loaded  int    `json:"loaded"`
	Message string `json:"message"`
}

// Sink receives events in order.
type Sink interface {
	Report(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Report(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Tracker clamps reports so Loaded is non-decreasing and within [0, Total]
// before forwarding them to a sink.
type Tracker struct {
	mu   sync.Mutex
	sink Sink
	last int
}

func NewTracker(sink Sink) *Tracker {
	if sink == nil {
		sink = Discard
	}
	return &Tracker{sink: sink}
}

// Advance reports loaded with message. A loaded value below the previous
// report is raised to it.
func (t *Tracker) Advance(loaded int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if loaded > Total {
		loaded = Total
	}
	if loaded < t.last {
		loaded = t.last
	}
	t.last = loaded
	t.sink.Report(Event{Total: Total, Loaded: loaded, Message: message})
}

// Last returns the most recently reported value.
func (t *Tracker) Last() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Channel is a bounded, ordered event stream. Report blocks while the buffer
// is full, so the reader must drain Events until it is closed.
type Channel struct {
	events    chan Event
	closeOnce sync.Once
}

func NewChannel(buffer int) *Channel {
	if buffer < 0 {
		buffer = 0
	}
	return &Channel{events: make(chan Event, buffer)}
}

func (c *Channel) Report(e Event) {
	c.events <- e
}

func (c *Channel) Events() <-chan Event {
	return c.events
}

// Close ends the stream. Reporting after Close panics.
func (c *Channel) Close() {
	c.closeOnce.Do(func() { close(c.events) })
}

// Recorder keeps every event; it is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything reported so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
