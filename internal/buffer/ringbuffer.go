package buffer

import "errors"

// ErrNoData is returned when an offset addresses a slot that holds no entry,
// either because it is beyond the buffer capacity or because the buffer has
// not yet been filled that deep.
var ErrNoData = errors.New("buffer: no data at offset")

// Entry is one timestamped value. TS is in seconds since the epoch.
type Entry[T any] struct {
	TS    float64
	Value T
}

// RingBuffer stores a fixed number of timestamped entries.
// When capacity is reached, oldest entries are overwritten.
//
// Offsets address entries backwards from the most recent write: offset 0 is
// the latest entry, offset 1 the one before it, and so on.
type RingBuffer[T any] struct {
	slots    []Entry[T]
	written  []bool
	capacity int
	head     int // next write position
	size     int // current number of entries
}

// New creates a new RingBuffer with the specified capacity.
// A capacity below 1 is treated as 1.
func New[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer[T]{
		slots:    make([]Entry[T], capacity),
		written:  make([]bool, capacity),
		capacity: capacity,
	}
}

// Put adds an entry to the buffer, overwriting the oldest if at capacity.
func (rb *RingBuffer[T]) Put(ts float64, value T) {
	rb.slots[rb.head] = Entry[T]{TS: ts, Value: value}
	rb.written[rb.head] = true
	rb.head = (rb.head + 1) % rb.capacity
	if rb.size < rb.capacity {
		rb.size++
	}
}

// Get returns the entry offset positions before the most recent write.
func (rb *RingBuffer[T]) Get(offset int) (Entry[T], error) {
	if offset < 0 || offset >= rb.capacity {
		return Entry[T]{}, ErrNoData
	}
	idx := (rb.head + rb.capacity - offset - 1) % rb.capacity
	if !rb.written[idx] {
		return Entry[T]{}, ErrNoData
	}
	return rb.slots[idx], nil
}

// Latest returns the most recently written entry and true,
// or the zero entry and false if the buffer is empty.
func (rb *RingBuffer[T]) Latest() (Entry[T], bool) {
	e, err := rb.Get(0)
	return e, err == nil
}

// Entries returns all live entries in chronological order (oldest first).
// Returns nil if the buffer is empty.
func (rb *RingBuffer[T]) Entries() []Entry[T] {
	if rb.size == 0 {
		return nil
	}
	result := make([]Entry[T], 0, rb.size)
	for i := 0; i < rb.capacity; i++ {
		idx := (rb.head + i) % rb.capacity
		if rb.written[idx] {
			result = append(result, rb.slots[idx])
		}
	}
	return result
}

// Len returns the current number of entries in the buffer.
func (rb *RingBuffer[T]) Len() int {
	return rb.size
}

// Cap returns the fixed capacity of the buffer.
func (rb *RingBuffer[T]) Cap() int {
	return rb.capacity
}

// Reset empties the buffer without changing its capacity.
func (rb *RingBuffer[T]) Reset() {
	clear(rb.slots)
	clear(rb.written)
	rb.head = 0
	rb.size = 0
}
