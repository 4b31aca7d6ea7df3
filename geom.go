package atlasfill

import (
	"fmt"
	"math"
)

// IRect is an axis-aligned integer rectangle in device space. Right and
// Bottom are exclusive.
type IRect struct {
	Left, Top, Right, Bottom int32
}

// IRectLTRB creates an IRect from its edges.
func IRectLTRB(l, t, r, b int32) IRect {
	return IRect{Left: l, Top: t, Right: r, Bottom: b}
}

// IRectXYWH creates an IRect from an origin and a size.
func IRectXYWH(x, y, w, h int32) IRect {
	return IRect{Left: x, Top: y, Right: x + w, Bottom: y + h}
}

// Width returns the horizontal extent of r.
func (r IRect) Width() int32 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r IRect) Height() int32 { return r.Bottom - r.Top }

// IsEmpty reports whether r covers no pixels.
func (r IRect) IsEmpty() bool { return r.Right <= r.Left || r.Bottom <= r.Top }

// Join returns the smallest rectangle containing both r and o. Empty
// rectangles do not contribute.
func (r IRect) Join(o IRect) IRect {
	if o.IsEmpty() {
		return r
	}
	if r.IsEmpty() {
		return o
	}
	return IRect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}

// Intersects reports whether r and o share at least one pixel. Empty
// rectangles intersect nothing.
func (r IRect) Intersects(o IRect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.Left < o.Right && o.Left < r.Right && r.Top < o.Bottom && o.Top < r.Bottom
}

// Offset returns r translated by (dx, dy).
func (r IRect) Offset(dx, dy int32) IRect {
	return IRect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

// String returns a string representation of the rectangle.
func (r IRect) String() string {
	return fmt.Sprintf("IRect[%d,%d,%d,%d]", r.Left, r.Top, r.Right, r.Bottom)
}

// Rect is an axis-aligned float rectangle.
type Rect struct {
	Left, Top, Right, Bottom float32
}

// RectLTRB creates a Rect from its edges.
func RectLTRB(l, t, r, b float32) Rect {
	return Rect{Left: l, Top: t, Right: r, Bottom: b}
}

// RectFromIRect converts an integer rectangle.
func RectFromIRect(r IRect) Rect {
	return Rect{
		Left:   float32(r.Left),
		Top:    float32(r.Top),
		Right:  float32(r.Right),
		Bottom: float32(r.Bottom),
	}
}

// Width returns the horizontal extent of r.
func (r Rect) Width() float32 { return r.Right - r.Left }

// Height returns the vertical extent of r.
func (r Rect) Height() float32 { return r.Bottom - r.Top }

// IsEmpty reports whether r has no area.
func (r Rect) IsEmpty() bool { return !(r.Left < r.Right && r.Top < r.Bottom) }

// Join returns the smallest rectangle containing both r and o. Empty
// rectangles do not contribute.
func (r Rect) Join(o Rect) Rect {
	if o.IsEmpty() {
		return r
	}
	if r.IsEmpty() {
		return o
	}
	return Rect{
		Left:   min(r.Left, o.Left),
		Top:    min(r.Top, o.Top),
		Right:  max(r.Right, o.Right),
		Bottom: max(r.Bottom, o.Bottom),
	}
}

// Intersects reports whether r and o overlap with non-zero area.
func (r Rect) Intersects(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.Left < o.Right && o.Left < r.Right && r.Top < o.Bottom && o.Top < r.Bottom
}

// RoundOut returns the smallest integer rectangle containing r.
func (r Rect) RoundOut() IRect {
	return IRect{
		Left:   int32(math.Floor(float64(r.Left))),
		Top:    int32(math.Floor(float64(r.Top))),
		Right:  int32(math.Ceil(float64(r.Right))),
		Bottom: int32(math.Ceil(float64(r.Bottom))),
	}
}

// Array returns the edges as four float32 values (left, top, right, bottom).
func (r Rect) Array() [4]float32 {
	return [4]float32{r.Left, r.Top, r.Right, r.Bottom}
}

// String returns a string representation of the rectangle.
func (r Rect) String() string {
	return fmt.Sprintf("Rect[%g,%g,%g,%g]", r.Left, r.Top, r.Right, r.Bottom)
}
