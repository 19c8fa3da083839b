package buffer

import (
	"errors"
	"math"
	"testing"
)

func TestRingBuffer_PutSingleValue(t *testing.T) {
	rb := New[float64](30)
	rb.Put(1.5, 42.0)

	e, err := rb.Get(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.TS != 1.5 || e.Value != 42.0 {
		t.Errorf("expected {1.5 42}, got %+v", e)
	}
}

func TestRingBuffer_GetUnwrittenSlot(t *testing.T) {
	rb := New[float64](30)
	rb.Put(0, 1)
	rb.Put(1, 2)

	if _, err := rb.Get(2); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for unwritten slot, got %v", err)
	}
	if _, err := rb.Get(-1); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for negative offset, got %v", err)
	}
}

func TestRingBuffer_EmptyGet(t *testing.T) {
	rb := New[float64](3)
	if _, err := rb.Get(0); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData on empty buffer, got %v", err)
	}
}

func TestRingBuffer_OverwriteInvariant(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		extra    int
	}{
		{"exact_fill", 5, 0},
		{"one_over", 5, 1},
		{"wrapped_twice", 5, 11},
		{"capacity_one", 1, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rb := New[float64](tc.capacity)
			total := tc.capacity + tc.extra
			for i := 0; i < total; i++ {
				rb.Put(float64(i), float64(i*10))
			}

			if _, err := rb.Get(tc.capacity); !errors.Is(err, ErrNoData) {
				t.Errorf("expected ErrNoData at offset %d, got %v", tc.capacity, err)
			}

			// offsets 0..N-1 walk back through the N most recent entries
			for offset := 0; offset < tc.capacity; offset++ {
				e, err := rb.Get(offset)
				if err != nil {
					t.Fatalf("offset %d: unexpected error %v", offset, err)
				}
				want := float64(total - 1 - offset)
				if e.TS != want || e.Value != want*10 {
					t.Errorf("offset %d: expected ts %f, got %+v", offset, want, e)
				}
			}
		})
	}
}

func TestRingBuffer_EntriesChronological(t *testing.T) {
	rb := New[float64](30)

	// Put 35 values (0 through 34)
	for i := 0; i < 35; i++ {
		rb.Put(float64(i), float64(i))
	}

	entries := rb.Entries()
	if len(entries) != 30 {
		t.Fatalf("expected 30 entries, got %d", len(entries))
	}

	// Should contain values 5-34 in chronological order
	for i := 0; i < 30; i++ {
		expected := float64(i + 5)
		if entries[i].Value != expected {
			t.Errorf("at index %d: expected %f, got %f", i, expected, entries[i].Value)
		}
	}
}

func TestRingBuffer_EntriesSkipsEmptySlots(t *testing.T) {
	rb := New[string](10)
	rb.Put(1, "a")
	rb.Put(2, "b")

	entries := rb.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Value != "a" || entries[1].Value != "b" {
		t.Errorf("expected [a b], got %+v", entries)
	}
}

func TestRingBuffer_EmptyReturnsNil(t *testing.T) {
	rb := New[float64](30)

	if entries := rb.Entries(); entries != nil {
		t.Errorf("expected nil for empty buffer, got %v", entries)
	}
}

func TestRingBuffer_PutNaN(t *testing.T) {
	rb := New[float64](30)
	rb.Put(0, math.NaN())

	e, err := rb.Get(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(e.Value) {
		t.Errorf("expected NaN, got %f", e.Value)
	}
}

func TestRingBuffer_Len(t *testing.T) {
	rb := New[float64](30)

	if rb.Len() != 0 {
		t.Errorf("expected len 0, got %d", rb.Len())
	}

	rb.Put(0, 1.0)
	if rb.Len() != 1 {
		t.Errorf("expected len 1, got %d", rb.Len())
	}

	// Fill to capacity
	for i := 1; i < 30; i++ {
		rb.Put(float64(i), float64(i))
	}
	if rb.Len() != 30 {
		t.Errorf("expected len 30, got %d", rb.Len())
	}

	// Overflow should still be 30
	rb.Put(30, 100.0)
	if rb.Len() != 30 {
		t.Errorf("after overflow: expected len 30, got %d", rb.Len())
	}
	if rb.Cap() != 30 {
		t.Errorf("expected cap 30, got %d", rb.Cap())
	}
}

func TestRingBuffer_Latest(t *testing.T) {
	rb := New[float64](30)

	// Empty buffer
	_, ok := rb.Latest()
	if ok {
		t.Error("expected ok=false for empty buffer")
	}

	rb.Put(1, 42.0)
	e, ok := rb.Latest()
	if !ok {
		t.Error("expected ok=true after put")
	}
	if e.Value != 42.0 {
		t.Errorf("expected 42.0, got %f", e.Value)
	}

	rb.Put(2, 99.0)
	e, ok = rb.Latest()
	if !ok {
		t.Error("expected ok=true")
	}
	if e.Value != 99.0 {
		t.Errorf("expected 99.0, got %f", e.Value)
	}
}

func TestRingBuffer_Reset(t *testing.T) {
	rb := New[float64](4)
	for i := 0; i < 6; i++ {
		rb.Put(float64(i), float64(i))
	}
	rb.Reset()

	if rb.Len() != 0 {
		t.Errorf("expected len 0 after reset, got %d", rb.Len())
	}
	if _, err := rb.Get(0); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData after reset, got %v", err)
	}

	rb.Put(10, 7)
	e, err := rb.Get(0)
	if err != nil || e.Value != 7 {
		t.Errorf("expected 7 after reset and put, got %+v (%v)", e, err)
	}
}
