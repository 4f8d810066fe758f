package gpu

import (
	"slices"
	"testing"
)

// TestFifoOrder verifies first in, first out order across compactions.
func TestFifoOrder(t *testing.T) {
	var q fifo[int]
	next := 0
	for i := range 500 {
		q.push(i)
		if i%3 == 0 {
			if got := q.pop(); got != next {
				t.Fatalf("pop() = %d, want %d", got, next)
			}
			next++
		}
	}
	if got, want := q.len(), 500-next; got != want {
		t.Fatalf("len() = %d, want %d", got, want)
	}
	for q.len() > 0 {
		if got := q.front(); got != next {
			t.Fatalf("front() = %d, want %d", got, next)
		}
		if got := q.pop(); got != next {
			t.Fatalf("pop() = %d, want %d", got, next)
		}
		next++
	}
	if next != 500 {
		t.Errorf("popped %d elements, want 500", next)
	}
}

// TestFifoReleasesPopped verifies that popped slots no longer reference
// their elements.
func TestFifoReleasesPopped(t *testing.T) {
	var q fifo[*int]
	for i := range 40 {
		q.push(&i)
	}
	for range 39 {
		q.pop()
	}
	if q.len() != 1 {
		t.Fatalf("len() = %d, want 1", q.len())
	}
	live := slices.IndexFunc(q.items, func(p *int) bool { return p != nil })
	if live != q.head {
		t.Errorf("first non-nil slot = %d, want head %d", live, q.head)
	}
}

// TestRollback verifies that undo steps run in reverse order once.
func TestRollback(t *testing.T) {
	var rb rollback
	var order []int
	for i := range 3 {
		rb.add(func() { order = append(order, i) })
	}
	rb.run()
	rb.run()
	if !slices.Equal(order, []int{2, 1, 0}) {
		t.Errorf("undo order = %v, want [2 1 0]", order)
	}

	rb.add(func() { t.Error("discarded step ran") })
	rb.discard()
	rb.run()
}
