package connection

// DefaultEventCapacity bounds how many events can sit between a worker and
// the foreground loop before sends start dropping.
const DefaultEventCapacity = 1000

// Bridge is the bounded event channel between one worker and the foreground
// loop. Sends never block: when the channel is full the new event is dropped
// on the floor. Delivery order for the events that do get through is FIFO.
type Bridge struct {
	events chan Event
}

// NewBridge builds a bridge with the given capacity; zero or negative means
// DefaultEventCapacity.
func NewBridge(capacity int) *Bridge {
	if capacity <= 0 {
		capacity = DefaultEventCapacity
	}
	return &Bridge{events: make(chan Event, capacity)}
}

// TrySend enqueues the event without blocking. It reports false when the
// event was dropped because the channel is full; callers treat that as a
// non-error outcome.
func (b *Bridge) TrySend(ev Event) bool {
	select {
	case b.events <- ev:
		return true
	default:
		return false
	}
}

// TryRecv dequeues one event without blocking.
func (b *Bridge) TryRecv() (Event, bool) {
	select {
	case ev := <-b.events:
		return ev, true
	default:
		return Event{}, false
	}
}
