// Package event provides the node's in-process pub/sub: BlockProducer
// posts ChainHeadEvents here, and the RPC layer's filter and WebSocket
// subscriptions consume them. It follows an event.Feed/event.Subscription
// convention (SubscribeXEvent(ch) Subscription) rather than a single
// untyped bus; generics keep each event kind type-safe without reflection.
package event

import "sync"

// Subscription is a handle a caller holds until it wants to stop
// receiving events; Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// Feed delivers values of type T to any number of subscribed channels. A
// zero Feed is ready to use.
type Feed[T any] struct {
	mu   sync.Mutex
	subs map[*feedSub[T]]struct{}
}

type feedSub[T any] struct {
	feed *Feed[T]
	ch   chan<- T
	once sync.Once
}

func (s *feedSub[T]) Unsubscribe() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s)
		s.feed.mu.Unlock()
	})
}

// Subscribe registers ch to receive every value sent to the feed from now
// on. The returned Subscription must be closed (Unsubscribe) when the
// caller is done, or the feed will keep trying to deliver to it forever.
func (f *Feed[T]) Subscribe(ch chan<- T) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[*feedSub[T]]struct{})
	}
	sub := &feedSub[T]{feed: f, ch: ch}
	f.subs[sub] = struct{}{}
	return sub
}

// Send delivers value to every current subscriber, blocking until each
// has accepted it. BlockProducer calls this once per sealed block; with a
// handful of subscribers (RPC filter and WebSocket pumps) blocking
// delivery keeps ordering simple and avoids a dropped-event channel.
func (f *Feed[T]) Send(value T) int {
	f.mu.Lock()
	subs := make([]*feedSub[T], 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.ch <- value
	}
	return len(subs)
}
