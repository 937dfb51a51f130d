package transport

import "sync"

// Handler receives connection lifecycle callbacks. A Handle invokes all of
// them from a single goroutine, in order; OnClose is always the last call.
type Handler interface {
	OnOpen()
	OnMessage(text string)
	OnError(err error)
	OnClose()
}

type EventKind int

const (
	EventOpen EventKind = iota
	EventMessage
	EventError
	EventClose
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	default:
		return "unknown"
	}
}

// Event is a recorded Handler callback.
type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Deliver replays the event on h.
func (e Event) Deliver(h Handler) {
	switch e.Kind {
	case EventOpen:
		h.OnOpen()
	case EventMessage:
		h.OnMessage(e.Text)
	case EventError:
		h.OnError(e.Err)
	case EventClose:
		h.OnClose()
	}
}

// EventChannel is a Handler that forwards callbacks as Events on a channel,
// so a host can apply them on its own goroutine. Nothing is dropped: when the
// buffer is full the transport waits until the host catches up or Stop is
// called.
type EventChannel struct {
	ch       chan Event
	stop     chan struct{}
	stopOnce sync.Once
}

var _ Handler = (*EventChannel)(nil)

func NewEventChannel(buffer int) *EventChannel {
	if buffer < 0 {
		buffer = 0
	}
	return &EventChannel{
		ch:   make(chan Event, buffer),
		stop: make(chan struct{}),
	}
}

func (c *EventChannel) Events() <-chan Event { return c.ch }

// Stop unblocks any pending forward. Events emitted afterwards are discarded.
func (c *EventChannel) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *EventChannel) forward(ev Event) {
	select {
	case <-c.stop:
		return
	default:
	}
	select {
	case c.ch <- ev:
	case <-c.stop:
	}
}

func (c *EventChannel) OnOpen()               { c.forward(Event{Kind: EventOpen}) }
func (c *EventChannel) OnMessage(text string) { c.forward(Event{Kind: EventMessage, Text: text}) }
func (c *EventChannel) OnError(err error)     { c.forward(Event{Kind: EventError, Err: err}) }
func (c *EventChannel) OnClose()              { c.forward(Event{Kind: EventClose}) }
