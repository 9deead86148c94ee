package habits

import "sync"

// EventKind identifies what changed.
type EventKind int

const (
	EventCreated EventKind = iota
	EventUpdated
	EventArchived
	EventUnarchived
	EventCompletionChanged
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventArchived:
		return "archived"
	case EventUnarchived:
		return "unarchived"
	case EventCompletionChanged:
		return "completion_changed"
	}
	return "unknown"
}

// Event is published after a mutation has been persisted.
type Event struct {
	Kind    EventKind
	HabitID string
}

// Listener receives change events. Listeners run synchronously on the
// mutating goroutine after the store lock is released and must not block.
type Listener func(Event)

type broadcaster struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

func (b *broadcaster) subscribe(fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listeners == nil {
		b.listeners = make(map[int]Listener)
	}
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

func (b *broadcaster) publish(e Event) {
	b.mu.Lock()
	listeners := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		listeners = append(listeners, fn)
	}
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(e)
	}
}
