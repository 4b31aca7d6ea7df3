// Package arena provides a typed bump allocator whose memory lives until the
// owning op list is reset.
//
// Objects allocated from an Arena are never freed individually. Reset makes
// every chunk available again and zeroes it, so pointers obtained before a
// Reset must not be used afterwards.
package arena

import (
	"reflect"
	"sync"
)

// chunkBytes is the target size of a freshly allocated chunk.
const chunkBytes = 16 << 10

// minChunkElems bounds the element count of a chunk from below so that
// large element types still amortize allocation.
const minChunkElems = 8

// Arena is a typed slab allocator. It is safe for concurrent use.
type Arena struct {
	mu     sync.Mutex
	slabs  map[reflect.Type]*slab
	allocs int
	bytes  int
}

// slab holds the chunks of a single element type. Each chunk is a []T with
// len == cap, stored as any so that one map can hold every type.
type slab struct {
	chunks   []any
	chunk    int
	off      int
	minElems int
	elemSize int
	clear    func(any)
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{
		slabs: make(map[reflect.Type]*slab),
	}
}

// New allocates a zero value of type T.
func New[T any](a *Arena) *T {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &alloc[T](a, 1)[0]
}

// Make allocates a copy of v.
func Make[T any](a *Arena, v T) *T {
	ptr := New[T](a)
	*ptr = v
	return ptr
}

// NewSlice allocates a slice with the given length and capacity. Appending
// past the capacity with the builtin append moves the data to the heap; use
// Append to stay inside the arena.
func NewSlice[S ~[]E, E any](a *Arena, length, capacity int) S {
	if capacity == 0 {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return S(alloc[E](a, capacity)[:length])
}

// MakeSlice allocates a copy of values.
func MakeSlice[S ~[]E, E any](a *Arena, values S) S {
	s := NewSlice[S](a, len(values), len(values))
	copy(s, values)
	return s
}

// Append appends data to s, growing s inside the arena when needed. Earlier
// slices that shared s's backing array stay valid.
func Append[S ~[]E, E any](a *Arena, s S, data ...E) S {
	if len(data) == 0 {
		return s
	}
	s = grow(a, s, len(data))
	return append(s, data...)
}

func grow[S ~[]E, E any](a *Arena, s S, n int) S {
	const growThreshold = 256
	newLen := len(s) + n
	newCap := cap(s)
	if newLen <= newCap {
		return s
	}
	if newCap > 0 {
		for newLen > newCap {
			if newCap < growThreshold {
				newCap *= 2
			} else {
				newCap += newCap / 4
			}
		}
	} else {
		newCap = n
	}
	s2 := NewSlice[S](a, len(s), newCap)
	copy(s2, s)
	return s2
}

// alloc returns n contiguous zeroed elements. The caller holds a.mu.
func alloc[T any](a *Arena, n int) []T {
	typ := reflect.TypeFor[T]()
	s, ok := a.slabs[typ]
	if !ok {
		size := int(typ.Size())
		elems := minChunkElems
		if size > 0 && chunkBytes/size > elems {
			elems = chunkBytes / size
		}
		s = &slab{
			minElems: elems,
			elemSize: size,
			clear:    func(c any) { clear(c.([]T)) },
		}
		a.slabs[typ] = s
	}
	a.allocs++
	a.bytes += n * s.elemSize

	for s.chunk < len(s.chunks) {
		c := s.chunks[s.chunk].([]T)
		if s.off+n <= len(c) {
			r := c[s.off : s.off+n : s.off+n]
			s.off += n
			return r
		}
		s.chunk++
		s.off = 0
	}

	c := make([]T, max(n, s.minElems))
	s.chunks = append(s.chunks, c)
	s.chunk = len(s.chunks) - 1
	s.off = n
	return c[:n:n]
}

// Reset zeroes every chunk and rewinds the arena. All memory previously
// handed out is reused by later allocations.
func (a *Arena) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.slabs {
		for _, c := range s.chunks {
			s.clear(c)
		}
		s.chunk = 0
		s.off = 0
	}
	a.allocs = 0
	a.bytes = 0
}

// Stats reports the number of allocations and bytes handed out since the
// last Reset.
func (a *Arena) Stats() (allocs, bytes int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocs, a.bytes
}
