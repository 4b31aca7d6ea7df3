package atlas

import (
	"sync"
	"testing"
)

func TestRectAllocatorShelves(t *testing.T) {
	a := NewRectAllocator(32, 32, 1)

	tests := []struct {
		w, h int
		want Region
	}{
		{10, 8, Region{X: 0, Y: 0, Width: 10, Height: 8}},
		{10, 6, Region{X: 11, Y: 0, Width: 10, Height: 6}},
		{10, 8, Region{X: 22, Y: 0, Width: 10, Height: 8}},
		// Row is full: a new shelf starts below the padded first shelf.
		{5, 5, Region{X: 0, Y: 9, Width: 5, Height: 5}},
		// Taller than the shelf it would share: next shelf.
		{5, 12, Region{X: 0, Y: 15, Width: 5, Height: 12}},
	}
	for i, tt := range tests {
		got := a.Allocate(tt.w, tt.h)
		if got != tt.want {
			t.Errorf("#%d Allocate(%d, %d) = %v, want %v", i, tt.w, tt.h, got, tt.want)
		}
	}
	if a.AllocCount() != len(tests) {
		t.Errorf("AllocCount = %d, want %d", a.AllocCount(), len(tests))
	}
	if want := 80 + 60 + 80 + 25 + 60; a.UsedArea() != want {
		t.Errorf("UsedArea = %d, want %d", a.UsedArea(), want)
	}
}

func TestRectAllocatorRejects(t *testing.T) {
	a := NewRectAllocator(16, 16, 0)
	for _, size := range [][2]int{{0, 4}, {4, -1}, {17, 1}, {1, 17}} {
		if r := a.Allocate(size[0], size[1]); r.IsValid() {
			t.Errorf("Allocate(%d, %d) = %v, want invalid", size[0], size[1], r)
		}
	}

	if r := a.Allocate(16, 16); !r.IsValid() {
		t.Fatal("exact fit failed")
	}
	if r := a.Allocate(1, 1); r.IsValid() {
		t.Errorf("Allocate on a full allocator = %v", r)
	}
	if a.Utilization() != 1 {
		t.Errorf("Utilization = %v, want 1", a.Utilization())
	}

	a.Reset()
	if a.UsedArea() != 0 || a.AllocCount() != 0 {
		t.Error("Reset did not clear statistics")
	}
	if r := a.Allocate(8, 8); r != (Region{Width: 8, Height: 8}) {
		t.Errorf("after Reset Allocate = %v", r)
	}
}

func TestRectAllocatorNoOverlap(t *testing.T) {
	a := NewRectAllocator(64, 64, 1)
	var mu sync.Mutex
	var regions []Region
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 8 {
				r := a.Allocate(3+(i+j)%5, 2+(i*j)%4)
				if !r.IsValid() {
					continue
				}
				mu.Lock()
				regions = append(regions, r)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for i, r := range regions {
		if r.X < 0 || r.Y < 0 || r.X+r.Width > 64 || r.Y+r.Height > 64 {
			t.Errorf("%v outside the area", r)
		}
		for _, o := range regions[i+1:] {
			if r.X < o.X+o.Width && o.X < r.X+r.Width && r.Y < o.Y+o.Height && o.Y < r.Y+r.Height {
				t.Errorf("%v overlaps %v", r, o)
			}
		}
	}
}

func TestRegion(t *testing.T) {
	r := Region{X: 2, Y: 3, Width: 4, Height: 5}
	if !r.Contains(2, 3) || !r.Contains(5, 7) || r.Contains(6, 3) || r.Contains(2, 8) {
		t.Error("Contains boundary handling is wrong")
	}
	if r.String() != "Region(2,3 4x5)" {
		t.Errorf("String() = %q", r.String())
	}
}
