// Package eventbus provides the in-process publish/subscribe channel that
// decouples the status monitor and restart orchestrator from the transport
// layers pushing their events to clients.
package eventbus

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Topic identifies a logical channel on the bus.
type Topic string

const (
	// TopicStatusChanged carries StatusEvent payloads whenever the observed
	// relay status transitions.
	TopicStatusChanged Topic = "status.changed"
	// TopicRestart carries RestartEvent payloads for restart lifecycle steps.
	TopicRestart Topic = "service.restart"
	// TopicConfigSaved carries ConfigSavedEvent payloads after a successful
	// save or restore of the live configuration.
	TopicConfigSaved Topic = "config.saved"
)

// Source describes which component produced an event.
type Source string

const (
	SourceStatusMonitor Source = "status_monitor"
	SourceOrchestrator  Source = "restart_orchestrator"
	SourceConfigAPI     Source = "config_api"
	SourceUnknown       Source = "unknown"
)

// Envelope wraps every message published on the bus.
type Envelope struct {
	Topic     Topic
	Timestamp time.Time
	Source    Source
	Payload   any
}

// StatusEvent reports an observed relay status transition.
type StatusEvent struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// RestartEvent reports progress of a restart attempt.
type RestartEvent struct {
	Strategy string `json:"strategy"`
	State    string `json:"state"`
	Message  string `json:"message,omitempty"`
}

// ConfigSavedEvent reports a mutation of the live configuration file.
type ConfigSavedEvent struct {
	Operation string `json:"operation"` // "save" or "restore"
}

// Bus orchestrates topic-based publish/subscribe messaging. Delivery is
// non-blocking: a subscriber that cannot keep up loses events, with a
// logged warning, rather than stalling the publisher.
type Bus struct {
	logger *log.Logger

	mu          sync.RWMutex
	subscribers map[Topic]map[uint64]*Subscription
	nextID      atomic.Uint64
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{
		logger:      log.Default(),
		subscribers: make(map[Topic]map[uint64]*Subscription),
	}
}

// Publish sends the envelope to all subscribers of its topic. A nil bus is
// a no-op so components can run without one in tests.
func (b *Bus) Publish(env Envelope) {
	if b == nil || env.Topic == "" {
		return
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now().UTC()
	}
	if env.Source == "" {
		env.Source = SourceUnknown
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers[env.Topic] {
		sub.deliver(env, b.logger)
	}
}

// Subscribe registers a subscriber for the given topic with the given
// channel buffer size (minimum 1).
func (b *Bus) Subscribe(topic Topic, bufferSize int) *Subscription {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	id := b.nextID.Add(1)
	sub := &Subscription{
		topic: topic,
		id:    id,
		ch:    make(chan Envelope, bufferSize),
		done:  make(chan struct{}),
		bus:   b,
	}

	b.mu.Lock()
	if _, exists := b.subscribers[topic]; !exists {
		b.subscribers[topic] = make(map[uint64]*Subscription)
	}
	b.subscribers[topic][id] = sub
	b.mu.Unlock()

	return sub
}

// Shutdown closes all subscriptions and empties the routing table.
func (b *Bus) Shutdown() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for topic, subs := range b.subscribers {
		for id, sub := range subs {
			sub.markClosed()
			delete(subs, id)
		}
		delete(b.subscribers, topic)
	}
}

// Subscription is one subscriber's view of a topic.
type Subscription struct {
	topic  Topic
	id     uint64
	ch     chan Envelope
	done   chan struct{}
	bus    *Bus
	closed atomic.Bool
}

// Events returns the channel envelopes arrive on. It is closed when the
// subscription closes.
func (s *Subscription) Events() <-chan Envelope {
	return s.ch
}

// Close detaches the subscription from the bus and closes its channel.
// markClosed runs under the bus write lock so it cannot race a delivery
// holding the read lock.
func (s *Subscription) Close() {
	if s.bus == nil {
		s.markClosed()
		return
	}
	s.bus.mu.Lock()
	if subs, ok := s.bus.subscribers[s.topic]; ok {
		delete(subs, s.id)
	}
	s.markClosed()
	s.bus.mu.Unlock()
}

func (s *Subscription) markClosed() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.done)
		close(s.ch)
	}
}

func (s *Subscription) deliver(env Envelope, logger *log.Logger) {
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- env:
	case <-s.done:
	default:
		logger.Printf("[EventBus] dropping %s event for slow subscriber %d", env.Topic, s.id)
	}
}
