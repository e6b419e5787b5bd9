// Package eventbus fans out values of one type to any number of
// subscribers without letting a slow subscriber block the publisher.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity of each subscription.
const DefaultBuffer = 8

// TypedBus delivers every published value to all current subscribers.
// A subscriber whose buffer is full misses the value; misses are counted.
type TypedBus[T any] struct {
	buffer  int
	dropped atomic.Uint64

	mu     sync.RWMutex
	subs   map[<-chan T]chan T
	closed bool
}

// NewTyped creates a bus with DefaultBuffer sized subscriptions.
func NewTyped[T any]() *TypedBus[T] { return NewTypedWithBuffer[T](DefaultBuffer) }

// NewTypedWithBuffer creates a bus whose subscriptions hold up to size
// pending values. Sizes below 1 are raised to 1.
func NewTypedWithBuffer[T any](size int) *TypedBus[T] {
	if size < 1 {
		size = 1
	}
	return &TypedBus[T]{buffer: size, subs: make(map[<-chan T]chan T)}
}

// Publish hands v to every subscriber that has room for it.
func (b *TypedBus[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
			b.dropped.Add(1)
		}
	}
}

// Subscribe returns a channel receiving subsequent values. On a closed bus
// the channel is already closed.
func (b *TypedBus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = ch
	return ch
}

// Unsubscribe detaches sub and closes it. Unknown channels are ignored.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[sub]; ok {
		delete(b.subs, sub)
		close(ch)
	}
}

// Subscribers returns the number of attached subscriptions.
func (b *TypedBus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (b *TypedBus[T]) Dropped() uint64 { return b.dropped.Load() }

// Close closes every subscription. Later publishes are ignored.
func (b *TypedBus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
