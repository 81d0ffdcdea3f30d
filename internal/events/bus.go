// Package events provides the in-process event bus that carries scheduler
// lifecycle notifications to the run ledger and the HTTP event stream.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	Timestamp() time.Time
	TopicID() string
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type  string    `json:"type"`
	Time  time.Time `json:"timestamp"`
	Topic string    `json:"topic_id,omitempty"`
}

func (e BaseEvent) EventType() string    { return e.Type }
func (e BaseEvent) Timestamp() time.Time { return e.Time }
func (e BaseEvent) TopicID() string      { return e.Topic }

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType, topicID string) BaseEvent {
	return BaseEvent{
		Type:  eventType,
		Time:  time.Now(),
		Topic: topicID,
	}
}

type subscriber struct {
	ch       chan Event
	types    map[string]bool // empty means all types
	priority bool
}

func (s *subscriber) wants(eventType string) bool {
	return len(s.types) == 0 || s.types[eventType]
}

// EventBus provides pub/sub with backpressure control.
// Regular subscribers behave as ring buffers and lose the oldest event when
// full. Priority subscribers receive blocking sends and never lose events.
type EventBus struct {
	mu           sync.RWMutex
	subscribers  []*subscriber
	prioritySubs []*subscriber
	bufferSize   int
	droppedCount int64
	closed       bool
}

// New creates a new EventBus with the specified buffer size.
func New(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &EventBus{bufferSize: bufferSize}
}

// Subscribe creates a subscription for specific event types.
// If no types are specified, subscribes to all events.
func (eb *EventBus) Subscribe(types ...string) <-chan Event {
	return eb.subscribe(false, eb.bufferSize, types)
}

// SubscribePriority creates a subscription that never drops events.
// The consumer must keep up; publishers block on a full buffer.
func (eb *EventBus) SubscribePriority(types ...string) <-chan Event {
	return eb.subscribe(true, 256, types)
}

func (eb *EventBus) subscribe(priority bool, size int, types []string) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	sub := &subscriber{
		ch:       make(chan Event, size),
		types:    make(map[string]bool, len(types)),
		priority: priority,
	}
	for _, t := range types {
		sub.types[t] = true
	}
	if eb.closed {
		close(sub.ch)
		return sub.ch
	}
	if priority {
		eb.prioritySubs = append(eb.prioritySubs, sub)
	} else {
		eb.subscribers = append(eb.subscribers, sub)
	}
	return sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers = removeSubscriber(eb.subscribers, ch)
	eb.prioritySubs = removeSubscriber(eb.prioritySubs, ch)
}

func removeSubscriber(subs []*subscriber, ch <-chan Event) []*subscriber {
	result := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		if sub.ch != ch {
			result = append(result, sub)
		} else {
			close(sub.ch)
		}
	}
	return result
}

// Publish sends an event to every matching subscriber.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	eventType := event.EventType()
	for _, sub := range eb.subscribers {
		if sub.wants(eventType) {
			eb.sendRing(sub, event)
		}
	}
	for _, sub := range eb.prioritySubs {
		if sub.wants(eventType) {
			sub.ch <- event
		}
	}
}

// sendRing drops the oldest buffered event when the subscriber is full.
func (eb *EventBus) sendRing(sub *subscriber, event Event) {
	select {
	case sub.ch <- event:
		return
	default:
	}
	select {
	case <-sub.ch:
		atomic.AddInt64(&eb.droppedCount, 1)
	default:
	}
	select {
	case sub.ch <- event:
	default:
		atomic.AddInt64(&eb.droppedCount, 1)
	}
}

// DroppedCount returns the total number of dropped events.
func (eb *EventBus) DroppedCount() int64 {
	return atomic.LoadInt64(&eb.droppedCount)
}

// SubscriberCount returns the number of active subscriptions.
func (eb *EventBus) SubscriberCount() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subscribers) + len(eb.prioritySubs)
}

// Close closes the event bus and all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, sub := range eb.subscribers {
		close(sub.ch)
	}
	for _, sub := range eb.prioritySubs {
		close(sub.ch)
	}
	eb.subscribers = nil
	eb.prioritySubs = nil
}
