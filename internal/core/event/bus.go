package event

import "sync"

// Sink is the append-only event buffer handed to every system during one
// tick. The engine flushes it exactly once, after the last system ran.
type Sink struct {
	tick   uint64
	events []Event
}

func NewSink(tick uint64) *Sink {
	return &Sink{tick: tick, events: make([]Event, 0, 16)}
}

// Emit stamps the event with the sink's tick and appends it.
func (s *Sink) Emit(ev Event) {
	ev.Tick = s.tick
	s.events = append(s.events, ev)
}

func (s *Sink) Len() int { return len(s.events) }

// Events returns the buffered events without clearing them.
func (s *Sink) Events() []Event { return s.events }

// Flush returns the buffered events and resets the sink.
func (s *Sink) Flush() []Event {
	out := s.events
	s.events = make([]Event, 0, 16)
	return out
}

// Bus delivers flushed tick events to collaborators (logging, observers,
// archives) after the pipeline finished. Handlers never run inside a tick.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	handlers map[Kind][]func(Event)
	all      []func([]Event)
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Kind][]func(Event)),
	}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(kind Kind, fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], fn)
}

// SubscribeBatch registers a handler that receives every non-empty tick batch.
func (b *Bus) SubscribeBatch(fn func([]Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, fn)
}

// Dispatch delivers events in emission order.
func (b *Bus) Dispatch(events []Event) {
	if len(events) == 0 {
		return
	}
	b.mu.Lock()
	handlers := make(map[Kind][]func(Event), len(b.handlers))
	for k, hs := range b.handlers {
		handlers[k] = hs
	}
	all := b.all
	b.mu.Unlock()

	for _, fn := range all {
		fn(events)
	}
	for _, ev := range events {
		for _, h := range handlers[ev.Kind] {
			h(ev)
		}
	}
}
