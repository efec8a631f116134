package signal

import "testing"

// TestSubscribeEmit verifies that subscribers receive emitted values
// in subscription order.
func TestSubscribeEmit(t *testing.T) {
	var s Signal[int]
	var got []int

	s.Subscribe(func(v int) { got = append(got, v) })
	s.Subscribe(func(v int) { got = append(got, v*10) })

	s.Emit(3)

	if len(got) != 2 || got[0] != 3 || got[1] != 30 {
		t.Errorf("Expected [3 30], got %v", got)
	}
}

// TestUnsubscribe verifies that an unsubscribed callback no longer
// fires, and that other subscriptions are unaffected.
func TestUnsubscribe(t *testing.T) {
	var s Signal[string]
	var first, second int

	h := s.Subscribe(func(string) { first++ })
	s.Subscribe(func(string) { second++ })

	s.Emit("a")
	s.Unsubscribe(h)
	s.Emit("b")

	if first != 1 {
		t.Errorf("Expected unsubscribed callback to fire once, fired %d times", first)
	}
	if second != 2 {
		t.Errorf("Expected remaining callback to fire twice, fired %d times", second)
	}
}

// TestUnsubscribeDuringEmit verifies that a callback may unsubscribe
// itself while a dispatch is in progress.
func TestUnsubscribeDuringEmit(t *testing.T) {
	var s Signal[int]
	var calls int

	var h Handle
	h = s.Subscribe(func(int) {
		calls++
		s.Unsubscribe(h)
	})

	s.Emit(1)
	s.Emit(2)

	if calls != 1 {
		t.Errorf("Expected one call, got %d", calls)
	}
	if s.Len() != 0 {
		t.Errorf("Expected no remaining subscribers, got %d", s.Len())
	}
}

// TestHandlesNotReused verifies that handles stay distinct across
// subscribe/unsubscribe cycles.
func TestHandlesNotReused(t *testing.T) {
	var s Signal[int]

	h1 := s.Subscribe(func(int) {})
	s.Unsubscribe(h1)
	h2 := s.Subscribe(func(int) {})

	if h1 == h2 {
		t.Errorf("Expected distinct handles, both were %v", h1)
	}
}
