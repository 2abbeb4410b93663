package machine

import "sync"

// Event types.
const (
	EventProgress = "gcode-progress"
	EventStatus   = "serial-status"
	EventData     = "serial-data"
	EventClosed   = "serial-closed"
	EventProbe    = "probe"
)

// EventTypes lists every event type a controller publishes.
var EventTypes = []string{EventProgress, EventStatus, EventData, EventClosed, EventProbe}

// Event is published on a Bus. Payload is a Progress, State, Data,
// ProbeResult or Closed depending on Type.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Data is a raw line received from the machine.
type Data struct {
	Line string `json:"line"`
}

// Closed is sent when the port is closed.
type Closed struct {
	Port  string `json:"port"`
	Error string `json:"error,omitempty"`
}

// Bus fans events out to subscribers. Publish never blocks; a subscriber
// that falls behind misses events.
type Bus struct {
	mx   sync.Mutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a func to stop receiving them.
// The channel is closed once cancel is called.
func (b *Bus) Subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)

	b.mx.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mx.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mx.Lock()
			delete(b.subs, id)
			b.mx.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(e Event) {
	b.mx.Lock()
	defer b.mx.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
