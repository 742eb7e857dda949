// Package chat fans events out to the listeners connected to this process.
// Delivery is best effort: a listener that is not keeping up misses events,
// and nothing is replayed on reconnect.
package chat

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	TopicChat     = "chat"
	TopicProducts = "products"

	defaultBuffer = 32
)

type Event struct {
	Topic  string          `json:"topic"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin"`
}

// Relay carries events to other instances.
type Relay interface {
	Forward(ctx context.Context, event Event) error
}

type Subscription struct {
	Topic   string
	Session string
	C       <-chan Event

	ch   chan Event
	hub  *Hub
	once sync.Once
}

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	origin string
	buffer int
	relay  Relay
	log    *logrus.Entry
}

type Option func(*Hub)

func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithRelay(r Relay) Option {
	return func(h *Hub) { h.relay = r }
}

func WithLogger(log *logrus.Entry) Option {
	return func(h *Hub) { h.log = log }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		origin: uuid.NewString(),
		buffer: defaultBuffer,
		log:    logrus.WithField("component", "hub"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetRelay attaches a relay after construction, for relays that need the hub
// themselves.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

func (h *Hub) Origin() string {
	return h.origin
}

func (h *Hub) Subscribe(topic, session string) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{Topic: topic, Session: session, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*Subscription]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[sub.Topic]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.Topic)
		}
	}
	close(sub.ch)
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Publish delivers to local subscribers and then forwards through the relay,
// if any. A relay failure is logged; local delivery has already happened.
func (h *Hub) Publish(ctx context.Context, topic, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	event := Event{Topic: topic, Name: name, Data: data, Origin: h.origin}
	h.deliver(event)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.Forward(ctx, event); err != nil {
			h.log.WithError(err).WithField("topic", topic).Warn("relay forward failed")
		}
	}
	return nil
}

// Receive takes an event from the relay. Events this hub published itself
// were already delivered and are dropped.
func (h *Hub) Receive(event Event) {
	if event.Origin == h.origin {
		return
	}
	h.deliver(event)
}

func (h *Hub) deliver(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.Topic] {
		select {
		case sub.ch <- event:
		default:
			h.log.WithFields(logrus.Fields{
				"topic":   event.Topic,
				"session": sub.Session,
			}).Warn("subscriber too slow, event dropped")
		}
	}
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, set := range subs {
		for sub := range set {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
}
