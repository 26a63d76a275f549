// Package realtime provides the in-process change feed: row-level change
// events published by the storage-facing services and consumed through
// filtered, cancellable subscriptions.
package realtime

import (
	"sync"
)

// Op is the kind of row change that produced an event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Change is the new, full state of one row after a write.
// Payload carries the domain record (e.g. session.Session, message.Message).
type Change struct {
	Table   string
	Op      Op
	Payload interface{}
}

// Filter decides whether a subscriber receives a given Change.
type Filter func(Change) bool

// subscriptionBufSize bounds each subscriber's backlog. Publishing never
// blocks: when a subscriber falls behind, its oldest pending event is
// dropped. Consumers must tolerate gap-then-resume.
const subscriptionBufSize = 64

type Subscription struct {
	events chan Change
	filter Filter

	broker *Broker
	id     int
	once   sync.Once
}

// Events yields change events until the subscription is released.
func (s *Subscription) Events() <-chan Change { return s.events }

// Unsubscribe releases the subscription and closes the event channel.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.remove(s.id)
		close(s.events)
	})
}

type Broker struct {
	mu     sync.Mutex
	subs   map[int]*Subscription
	nextID int
	closed bool
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*Subscription)}
}

// Subscribe registers a filtered subscription. A nil filter receives everything.
func (b *Broker) Subscribe(filter Filter) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		events: make(chan Change, subscriptionBufSize),
		filter: filter,
		broker: b,
		id:     b.nextID,
	}
	if b.closed {
		close(sub.events)
		return sub
	}
	b.subs[sub.id] = sub
	b.nextID++
	return sub
}

// Publish fans a change out to all matching subscribers without blocking.
func (b *Broker) Publish(ch Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(ch) {
			continue
		}
		select {
		case sub.events <- ch:
		default:
			// subscriber is behind: drop its oldest event to make room
			select {
			case <-sub.events:
			default:
			}
			select {
			case sub.events <- ch:
			default:
			}
		}
	}
}

// Close releases all subscriptions. Subsequent publishes are no-ops and
// subsequent subscriptions are born closed.
func (b *Broker) Close() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (b *Broker) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// NumSubscribers reports the number of live subscriptions.
func (b *Broker) NumSubscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
