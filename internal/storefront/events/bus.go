// internal/storefront/events/bus.go

// Package events is the storefront's in-process change notification bus.
//
// Each subscriber owns a one-slot mailbox. A publish that finds the slot full
// replaces the pending event, so a slow subscriber may skip intermediate
// events but always ends up holding the most recent one.
package events

import "sync"

// Topic names a kind of change
type Topic string

const (
	CartUpdated     Topic = "cartUpdated"
	WishlistUpdated Topic = "wishlistUpdated"
	ProfileUpdated  Topic = "profileUpdated"
)

// Event is one published change
type Event struct {
	Topic  Topic
	Seq    uint64
	Detail interface{}
}

// Bus fans events out to subscribers
type Bus struct {
	mu     sync.Mutex
	seq    uint64
	nextID int
	subs   map[Topic]map[int]chan Event
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]chan Event)}
}

// Subscribe returns a channel of events for topic and a func that ends the subscription
func (b *Bus) Subscribe(topic Topic) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, 1)
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan Event)
	}
	b.subs[topic][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			close(ch)
		})
	}
}

// Publish delivers detail to every subscriber of topic without blocking
func (b *Bus) Publish(topic Topic, detail interface{}) {
	if b == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev := Event{Topic: topic, Seq: b.seq, Detail: detail}
	for _, ch := range b.subs[topic] {
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
}
