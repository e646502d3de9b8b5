// Package event defines the typed notifications callers subscribe to
// (spec.md §4.9) and a small publish/subscribe mechanism used internally
// to break the cache-to-multicast-client cycle described in spec.md §9
// ("cyclic event wiring... break the cycle by message passing").
//
// The one-shot Subscription type implements the other §9 note, "dynamic
// event subscriptions for request/response": resolve_query-style calls
// register a handler, wait a fixed window, and detach — mirroring the
// teacher's sync.Once-guarded Stop() idiom (captivating/dns/types.go's
// Server.stopOnce) for exactly-once cleanup on either normal completion
// or early cancellation.
package event

import (
	"net"
	"sync"

	"resolvent/wire"
)

// AnswerEvent reports a parsed response: which records were newly added
// to the cache and which were refreshed.
type AnswerEvent struct {
	Message *wire.Message
	Remote  net.Addr
	Added   []wire.Record
	Updated []wire.Record
}

// QueryEvent reports an incoming query a caller may choose to answer.
type QueryEvent struct {
	Remote  net.Addr
	Message *wire.Message
}

// ErrorEvent reports a recovered transport or parse error. Remote is nil
// when the error occurred before a peer was identified.
type ErrorEvent struct {
	Err    error
	Remote net.Addr
}

// RefreshDueEvent reports that records of the given types under owner
// have crossed the curator's stale threshold and should be re-queried.
type RefreshDueEvent struct {
	Owner wire.Labels
	Types []wire.RRType
}

// BucketExpiredEvent reports that owner's bucket lost records purely to
// expiry (no records crossed the stale threshold this sweep).
type BucketExpiredEvent struct {
	Owner wire.Labels
}

// Handler receives one published event. The concrete event type is
// determined by a type switch in the handler body.
type Handler func(any)

// subscriber pairs a handler with the id its Subscription was issued, so
// Close can find and remove it from the order-preserving slice below.
type subscriber struct {
	id int
	h  Handler
}

// Publisher fans a published event out to every currently registered
// handler, in the order they subscribed. The zero value is not usable;
// use NewPublisher.
type Publisher struct {
	mu       sync.RWMutex
	handlers []subscriber
	nextID   int
}

// NewPublisher returns an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscription is a handle to a registered handler. Close deregisters it;
// Close is safe to call more than once.
type Subscription struct {
	pub  *Publisher
	id   int
	once sync.Once
}

// Close deregisters the handler this subscription was returned for.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.pub.mu.Lock()
		for i, sub := range s.pub.handlers {
			if sub.id == s.id {
				s.pub.handlers = append(s.pub.handlers[:i], s.pub.handlers[i+1:]...)
				break
			}
		}
		s.pub.mu.Unlock()
	})
}

// Subscribe registers h to receive every future Publish call until the
// returned Subscription is closed.
func (p *Publisher) Subscribe(h Handler) *Subscription {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers = append(p.handlers, subscriber{id: id, h: h})
	p.mu.Unlock()
	return &Subscription{pub: p, id: id}
}

// Publish invokes every currently registered handler with evt, in
// registration order. Handlers run synchronously on the caller's
// goroutine; slow handlers delay the publisher, which is why handlers
// that can block (mdns.Client.handleEvent, for one) detach their own work
// onto a new goroutine instead of doing it inline.
func (p *Publisher) Publish(evt any) {
	p.mu.RLock()
	handlers := make([]Handler, len(p.handlers))
	for i, sub := range p.handlers {
		handlers[i] = sub.h
	}
	p.mu.RUnlock()

	for _, h := range handlers {
		h(evt)
	}
}
