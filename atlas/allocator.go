package atlas

import (
	"fmt"
	"sync"
)

// Region is a rectangle handed out by a RectAllocator.
type Region struct {
	X, Y          int
	Width, Height int
}

// IsValid reports whether the region has a positive size.
func (r Region) IsValid() bool {
	return r.Width > 0 && r.Height > 0
}

// Contains reports whether (x, y) lies inside the region.
func (r Region) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// String returns a string representation of the region.
func (r Region) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// shelf is one horizontal band of the packer.
type shelf struct {
	y      int // top edge
	height int // tallest item so far, padded
	nextX  int // next free x
}

// RectAllocator packs rectangles into a fixed area using shelves: each
// rectangle goes on the first shelf with room for it, or on a new shelf
// below the last one.
//
// RectAllocator is safe for concurrent use.
type RectAllocator struct {
	mu sync.Mutex

	width, height int
	padding       int
	shelves       []shelf

	allocCount int
	usedArea   int
}

// NewRectAllocator creates an allocator for a width x height area. Every
// rectangle is followed by padding empty pixels to the right and below.
func NewRectAllocator(width, height, padding int) *RectAllocator {
	return &RectAllocator{
		width:   max(width, 0),
		height:  max(height, 0),
		padding: max(padding, 0),
		shelves: make([]shelf, 0, 16),
	}
}

// Size returns the packed area's dimensions.
func (a *RectAllocator) Size() (width, height int) { return a.width, a.height }

// Allocate finds space for a width x height rectangle. It returns an
// invalid region when the rectangle does not fit.
func (a *RectAllocator) Allocate(width, height int) Region {
	a.mu.Lock()
	defer a.mu.Unlock()

	if width <= 0 || height <= 0 {
		return Region{}
	}
	pw, ph := width+a.padding, height+a.padding
	if width > a.width || height > a.height {
		return Region{}
	}

	for i := range a.shelves {
		s := &a.shelves[i]
		if s.nextX+width > a.width {
			continue
		}
		// A shelf can only grow while it is empty.
		if ph > s.height && (s.nextX > 0 || i != len(a.shelves)-1 || s.y+ph > a.height) {
			continue
		}
		s.height = max(s.height, ph)
		return a.place(s, width, height, pw)
	}

	y := 0
	if n := len(a.shelves); n > 0 {
		y = a.shelves[n-1].y + a.shelves[n-1].height
	}
	if y+height > a.height {
		return Region{}
	}
	a.shelves = append(a.shelves, shelf{y: y, height: ph})
	return a.place(&a.shelves[len(a.shelves)-1], width, height, pw)
}

func (a *RectAllocator) place(s *shelf, width, height, paddedWidth int) Region {
	r := Region{X: s.nextX, Y: s.y, Width: width, Height: height}
	s.nextX += paddedWidth
	a.allocCount++
	a.usedArea += width * height
	return r
}

// Reset makes the whole area available again.
func (a *RectAllocator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shelves = a.shelves[:0]
	a.allocCount = 0
	a.usedArea = 0
}

// UsedArea returns the total area of allocated rectangles.
func (a *RectAllocator) UsedArea() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usedArea
}

// Utilization returns the fraction of the area in use.
func (a *RectAllocator) Utilization() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := a.width * a.height
	if total == 0 {
		return 0
	}
	return float64(a.usedArea) / float64(total)
}

// AllocCount returns the number of successful allocations.
func (a *RectAllocator) AllocCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.allocCount
}
