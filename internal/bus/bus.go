// Package bus is the portal's in-process broadcast channel. Views subscribe
// to topics and are notified synchronously when a service publishes.
package bus

import (
	"log/slog"
	"sync"

	"campusrecords/internal/metrics"
)

// Topics carried by the bus.
const (
	TopicAccount        = "account"
	TopicNavigate       = "navigate"
	TopicUpload         = "upload"
	TopicProfileUpdated = "profile-updated"
)

// Topics lists every topic the portal publishes.
var Topics = []string{TopicAccount, TopicNavigate, TopicUpload, TopicProfileUpdated}

// Event is one published message. Payload may be nil.
type Event struct {
	Topic   string
	Payload any
}

// Handler receives events for a topic.
type Handler func(Event)

// Unsubscribe removes a subscription. It is safe to call more than once.
type Unsubscribe func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events to the handlers registered when Publish is called,
// in registration order, on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
	log    *slog.Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string][]subscription),
		log:  slog.Default().With("component", "bus"),
	}
}

// Subscribe registers h for topic.
func (b *Bus) Subscribe(topic string, h Handler) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, topic)
			} else {
				b.subs[topic] = next
			}
			return
		}
	}
}

// Publish delivers payload to every current subscriber of topic.
// A handler that unsubscribes another one mid-delivery prevents that
// handler from running if it has not run yet.
func (b *Bus) Publish(topic string, payload any) {
	metrics.BusPublished.WithLabelValues(topic).Inc()

	b.mu.RLock()
	snapshot := b.subs[topic]
	b.mu.RUnlock()

	ev := Event{Topic: topic, Payload: payload}
	for _, s := range snapshot {
		if !b.active(topic, s.id) {
			continue
		}
		b.deliver(s, ev)
	}
}

func (b *Bus) active(topic string, id uint64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs[topic] {
		if s.id == id {
			return true
		}
	}
	return false
}

func (b *Bus) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("subscriber panicked", "topic", ev.Topic, "panic", r)
		}
	}()
	metrics.BusDelivered.WithLabelValues(ev.Topic).Inc()
	s.handler(ev)
}

// Subscribers returns the number of handlers registered for topic.
func (b *Bus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
