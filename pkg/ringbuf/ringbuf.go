// Package ringbuf provides a fixed-capacity FIFO that evicts the oldest
// element when full. It is not safe for concurrent use; callers guard it
// with their own lock.
package ringbuf

// Ring bounded FIFO of T.
type Ring[T any] struct {
	buf   []T
	start int // index of the oldest element
	size  int

	evicted uint64
}

// New creates a ring with the given capacity. Minimum capacity is 1.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v as the newest element, evicting the oldest one if the ring is full.
// Returns true when an element was evicted.
func (r *Ring[T]) Push(v T) bool {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return false
	}

	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
	r.evicted++
	return true
}

// Last returns the newest element.
func (r *Ring[T]) Last() (T, bool) {
	if r.size == 0 {
		var zero T
		return zero, false
	}
	return r.buf[(r.start+r.size-1)%len(r.buf)], true
}

// Slice returns a copy of the contents, oldest first.
func (r *Ring[T]) Slice() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Len returns the current number of elements.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Evicted returns how many elements were dropped to make room.
func (r *Ring[T]) Evicted() uint64 {
	return r.evicted
}
