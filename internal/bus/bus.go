package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"main/internal/schema"
)

var ErrBusClosed = errors.New("event bus closed")

// Event is the unit passed through the in-memory bus.
type Event struct {
	Header  schema.EventHeader
	Topic   string
	Payload any
}

// TopicInstrument is the broadcast topic for one instrument's quotes.
func TopicInstrument(name string) string {
	return "instrument/" + name
}

// TopicAccount is the broadcast topic for one account's order events.
func TopicAccount(id string) string {
	return "account/" + id
}

type subscriber struct {
	ch     chan Event
	cancel func()
}

// Bus is a topic-based broadcast channel. Publishing never blocks:
// a subscriber that cannot keep up loses events, which the publisher
// accounts for in the drop counter. Per-topic delivery order follows
// publish order for each publisher.
type Bus struct {
	mu       sync.RWMutex
	capacity int
	subs     map[string][]*subscriber
	closed   bool
	dropped  uint64
}

// New allocates a bus; capacity bounds every subscriber channel.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bus{
		capacity: capacity,
		subs:     make(map[string][]*subscriber),
	}
}

// Subscribe registers a consumer on a topic. The returned cancel func
// detaches the consumer and closes its channel.
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	sub := &subscriber{ch: make(chan Event, b.capacity)}
	sub.cancel = func() { b.unsubscribe(topic, sub) }
	b.subs[topic] = append(b.subs[topic], sub)
	return sub.ch, sub.cancel
}

// Publish fans the event out to every subscriber of the topic.
func (b *Bus) Publish(topic string, e Event) error {
	e.Topic = topic

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- e:
		default:
			atomic.AddUint64(&b.dropped, 1)
		}
	}
	return nil
}

// Dropped returns the number of events lost to slow subscribers.
func (b *Bus) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// Close detaches all subscribers and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			close(sub.ch)
		}
	}
	b.subs = make(map[string][]*subscriber)
}

func (b *Bus) unsubscribe(topic string, target *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	subs := b.subs[topic]
	for i, sub := range subs {
		if sub == target {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}
