// Package eventbus is an in-process publish/subscribe bus. The session store announces
// state transitions on it and the message poller delivers fresh group messages through it.
// Topics are dot-separated; a subscription pattern may use "*" for any single segment.
package eventbus

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Well-known topics.
const (
	TopicSessionState = "session.state"
)

// GroupMessagesTopic returns the topic fresh messages for groupID are published on.
func GroupMessagesTopic(groupID string) string {
	return "group." + groupID + ".messages"
}

// Event is a single published value.
type Event struct {
	Topic string
	Data  any
}

type subscription struct {
	id      string
	pattern string
	ch      chan Event

	mu     sync.Mutex
	closed bool
}

// deliver waits at most timeout for buffer space. A zero timeout never blocks.
func (s *subscription) deliver(e Event, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if timeout <= 0 {
		select {
		case s.ch <- e:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.ch <- e:
		return true
	case <-t.C:
		return false
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// EventBus routes published events to every subscription whose pattern matches the topic.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[string]*subscription
	counter uint64
	dropped uint64
}

// New creates an empty bus.
func New() *EventBus {
	return &EventBus{subs: make(map[string]*subscription)}
}

// Subscribe registers interest in pattern. The returned function unsubscribes and closes
// the channel; calling it more than once is safe.
func (bus *EventBus) Subscribe(pattern string, bufferSize int) (<-chan Event, func()) {
	if bufferSize < 1 {
		bufferSize = 1
	}
	sub := &subscription{
		id:      fmt.Sprintf("sub-%d", atomic.AddUint64(&bus.counter, 1)),
		pattern: pattern,
		ch:      make(chan Event, bufferSize),
	}

	bus.mu.Lock()
	bus.subs[sub.id] = sub
	bus.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			bus.mu.Lock()
			delete(bus.subs, sub.id)
			bus.mu.Unlock()
			sub.close()
		})
	}
}

// Publish sends data on topic. Delivery to a slow subscriber is abandoned after timeout,
// and the event is counted as dropped for that subscriber.
func (bus *EventBus) Publish(topic string, data any, timeout time.Duration) {
	e := Event{Topic: topic, Data: data}

	bus.mu.RLock()
	targets := make([]*subscription, 0, len(bus.subs))
	for _, s := range bus.subs {
		if matchTopic(s.pattern, topic) {
			targets = append(targets, s)
		}
	}
	bus.mu.RUnlock()

	for _, s := range targets {
		if !s.deliver(e, timeout) {
			atomic.AddUint64(&bus.dropped, 1)
		}
	}
}

// Dropped returns the number of deliveries abandoned so far.
func (bus *EventBus) Dropped() uint64 {
	return atomic.LoadUint64(&bus.dropped)
}

// Subscribers returns the number of live subscriptions.
func (bus *EventBus) Subscribers() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subs)
}

// Shutdown closes every subscription.
func (bus *EventBus) Shutdown() {
	bus.mu.Lock()
	subs := bus.subs
	bus.subs = make(map[string]*subscription)
	bus.mu.Unlock()

	for _, s := range subs {
		s.close()
	}
}

func matchTopic(pattern, topic string) bool {
	if pattern == "" || topic == "" {
		return false
	}
	if pattern == "*" || pattern == topic {
		return true
	}
	pp := strings.Split(pattern, ".")
	tp := strings.Split(topic, ".")
	if len(pp) != len(tp) {
		return false
	}
	for i := range pp {
		if pp[i] != "*" && pp[i] != tp[i] {
			return false
		}
	}
	return true
}
