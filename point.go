package atlasfill

// Point represents a 2D point or vector.
type Point struct {
	X, Y float64
}

// Pt is a convenience function to create a Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the sum of two points (vector addition).
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the difference of two points (vector subtraction).
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// IPoint16 is an integer point with 16-bit coordinates. Atlas locations
// use it because atlas textures never exceed 32767 pixels per side.
type IPoint16 struct {
	X, Y int16
}

// IPt16 is a convenience function to create an IPoint16.
func IPt16(x, y int16) IPoint16 {
	return IPoint16{X: x, Y: y}
}
