// Package signal provides a minimal ordered callback list used for
// change notification between volumes, display settings and textures.
//
// Dispatch is synchronous and single-threaded: Emit invokes every
// subscribed callback, in subscription order, before returning. There is
// no deferred queue; a mutation that emits a signal does not return to
// the mutator until every listener has run.
package signal

// Handle identifies a single subscription, and is used to unsubscribe.
// Handles are never reused within one Signal.
type Handle int

type entry[T any] struct {
	handle Handle
	fn     func(T)
}

// Signal is an ordered list of callbacks for one subscribable field.
// The zero value is ready to use. Signal is not safe for concurrent
// use; all subscription and emission is expected to happen on the
// rendering thread.
type Signal[T any] struct {
	entries []entry[T]
	next    Handle
}

// Subscribe registers fn and returns a handle which may later be passed
// to Unsubscribe. Callbacks fire in subscription order.
func (s *Signal[T]) Subscribe(fn func(T)) Handle {
	s.next++
	s.entries = append(s.entries, entry[T]{handle: s.next, fn: fn})
	return s.next
}

// Unsubscribe removes the subscription identified by h. Unknown or
// already-removed handles are ignored.
func (s *Signal[T]) Unsubscribe(h Handle) {
	for i, e := range s.entries {
		if e.handle == h {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// Emit invokes every subscribed callback with v, in subscription order.
func (s *Signal[T]) Emit(v T) {
	// Iterate over a snapshot so a callback may unsubscribe itself.
	snapshot := make([]entry[T], len(s.entries))
	copy(snapshot, s.entries)
	for _, e := range snapshot {
		e.fn(v)
	}
}

// Len returns the number of active subscriptions.
func (s *Signal[T]) Len() int {
	return len(s.entries)
}
