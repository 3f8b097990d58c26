package shared

import (
	"slices"
	"sync"
)

// Observers is a set of subscriber callbacks for snapshots of type T.
//
// Controllers [Observers.Publish] while holding their own lock and [Observers.Flush] after releasing it, so
// subscribers may read controller state and snapshots arrive in the order the state changed.
type Observers[T any] struct {
	mu         sync.Mutex
	next       int
	subs       map[int]func(T)
	pending    []T
	delivering bool
}

type observerEntry[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
func (o *Observers[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.subs == nil {
		o.subs = make(map[int]func(T))
	}
	id := o.next
	o.next++
	o.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
		})
	}
}

// Publish queues v for delivery by the next [Observers.Flush].
func (o *Observers[T]) Publish(v T) {
	o.mu.Lock()
	o.pending = append(o.pending, v)
	o.mu.Unlock()
}

// Flush delivers queued snapshots in order, each to every subscriber in subscription order.
//
// When another call is already delivering, including a nested call from inside a subscriber, Flush returns at once
// and that call delivers the rest after the current snapshot has reached every subscriber.
func (o *Observers[T]) Flush() {
	o.mu.Lock()
	if o.delivering {
		o.mu.Unlock()
		return
	}
	o.delivering = true
	for len(o.pending) > 0 {
		v := o.pending[0]
		o.pending = o.pending[1:]
		entries := make([]observerEntry[T], 0, len(o.subs))
		for id, fn := range o.subs {
			entries = append(entries, observerEntry[T]{id, fn})
		}
		o.mu.Unlock()

		slices.SortFunc(entries, func(a, b observerEntry[T]) int { return a.id - b.id })
		for _, e := range entries {
			e.fn(v)
		}

		o.mu.Lock()
	}
	o.pending = nil
	o.delivering = false
	o.mu.Unlock()
}

// Notify publishes v and flushes.
func (o *Observers[T]) Notify(v T) {
	o.Publish(v)
	o.Flush()
}
