// Package onceevent implements the single-shot, release-once event used to
// synchronize DAD and RA waits with the ICMPv6 inbound handler.
//
// The source (PyTCP) models this as a mutex-like release/acquire pair shared
// via process-wide stack state. Design Note §9 calls for single-shot channels
// or a condition-variable-plus-captured-value pair with a mandatory timeout
// instead; Event is that replacement.
package onceevent

import (
	"context"
	"sync"
)

// Event is created fresh for exactly one attempt (one DAD probe, one RA
// wait) and is never reused. Exactly one goroutine calls Wait; any number of
// goroutines may call Release, but only the first has any effect.
type Event[T any] struct {
	mu       sync.Mutex
	once     sync.Once
	done     chan struct{}
	value    T
	released bool
}

// New creates an event ready to be waited on.
func New[T any]() *Event[T] {
	return &Event[T]{done: make(chan struct{})}
}

// Release stores value and wakes the waiter. Only the first call has any
// effect; later calls are silently ignored, matching the "release once"
// semantics of the DAD/RA signal in spec.md §3.
func (e *Event[T]) Release(value T) {
	e.once.Do(func() {
		e.mu.Lock()
		e.value = value
		e.released = true
		e.mu.Unlock()
		close(e.done)
	})
}

// Wait blocks until Release is called or ctx is done. The mandatory timeout
// is enforced by the caller's context, per spec.md §5 ("timeouts are
// mandatory - no indefinite waits"). It returns the released value and true
// if Release happened before ctx expired, or the zero value and false on
// timeout/cancellation - a timeout is "semantically equivalent to a normal
// release with no data" (spec.md §5).
func (e *Event[T]) Wait(ctx context.Context) (T, bool) {
	select {
	case <-e.done:
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.value, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}
