// Package feed implements the multi-subscriber snapshot feeds behind the
// observe operations. A producer publishes full snapshots in order; every
// subscriber owns an independent buffered channel and new subscribers are
// primed with the latest snapshot when one exists.
package feed

import (
	"context"
	"sync"
)

const subscriberBuffer = 16

// Feed broadcasts ordered snapshots of type T to any number of subscribers.
// A subscriber that falls behind loses its oldest pending snapshot rather
// than blocking the publisher; since every update carries the full snapshot,
// dropped intermediates cost nothing but granularity.
type Feed[T any] struct {
	mu     sync.Mutex
	subs   map[chan T]struct{}
	last   T
	primed bool
	closed bool
}

// New returns an empty feed.
func New[T any]() *Feed[T] {
	return &Feed[T]{subs: make(map[chan T]struct{})}
}

// Publish delivers the snapshot to every subscriber and remembers it for
// future subscribers. Publishing on a closed feed is a no-op.
func (f *Feed[T]) Publish(snapshot T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	f.last = snapshot
	f.primed = true

	for ch := range f.subs {
		f.send(ch, snapshot)
	}
}

// send must be called with f.mu held.
func (f *Feed[T]) send(ch chan T, snapshot T) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
			// Buffer full: discard the oldest pending snapshot.
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Subscribe registers a new subscriber. The returned channel is primed with
// the latest published snapshot, if any, and closes when ctx is done or the
// feed is closed.
func (f *Feed[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, subscriberBuffer)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		close(ch)
		return ch
	}
	f.subs[ch] = struct{}{}
	if f.primed {
		f.send(ch, f.last)
	}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.unsubscribe(ch)
	}()

	return ch
}

func (f *Feed[T]) unsubscribe(ch chan T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
}

// Close shuts the feed down and closes every subscriber channel.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}
