package gridcache

import "sync"

// EventType classifies a cache lifecycle event.
type EventType int

const (
	// EventLoaded fires when a fetched chunk has been inserted into the table.
	EventLoaded EventType = iota
	// EventEvicted fires when an entry has been removed to stay under capacity
	// or by an idle sweep.
	EventEvicted
	// EventSaved fires when a dirty entry has been written back successfully.
	EventSaved
	// EventError fires when a fetch or write-back fails. Err is a *FetchError
	// or *PersistError.
	EventError
	// EventCleared fires when the table has been cleared; Count carries the
	// number of dropped entries.
	EventCleared
	// EventQueueDrained fires after each load batch; Count carries the number
	// of processed keys and Remaining the queue length left behind.
	EventQueueDrained
)

// String returns a human-readable event type name.
func (t EventType) String() string {
	switch t {
	case EventLoaded:
		return "loaded"
	case EventEvicted:
		return "evicted"
	case EventSaved:
		return "saved"
	case EventError:
		return "error"
	case EventCleared:
		return "cleared"
	case EventQueueDrained:
		return "queue_drained"
	default:
		return "unknown"
	}
}

// Event is a cache lifecycle notification. Events are observability only:
// they carry no authority to mutate cache state.
type Event struct {
	Type      EventType
	Key       ChunkKey // zero for EventCleared / EventQueueDrained
	Count     int      // EventCleared, EventQueueDrained
	Remaining int      // EventQueueDrained
	Err       error    // EventError
}

// eventBus fans events out to subscribers. Delivery never blocks cache
// operations: an event that does not fit in a subscriber's buffer is dropped
// and counted.
type eventBus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool

	onDrop func()
}

func newEventBus(onDrop func()) *eventBus {
	return &eventBus{
		subs:   make(map[int]chan Event),
		onDrop: onDrop,
	}
}

func (b *eventBus) subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan Event, buffer)
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

func (b *eventBus) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
}

func (b *eventBus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
