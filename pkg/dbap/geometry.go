// ABOUTME: Planar geometry used for speaker and sound placement
// ABOUTME: Points in metres, sound positions and channel fan-out
package dbap

import "math"

// Point is a position in the room, in metres
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p scaled by s
func (p Point) Scale(s float64) Point { return Point{X: p.X * s, Y: p.Y * s} }

// Len returns the length of p as a vector
func (p Point) Len() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the distance between p and q
func (p Point) Dist(q Point) float64 { return p.Sub(q).Len() }

// Position is where a sound is and which way it faces
type Position struct {
	Point   Point   `json:"point"`
	Radians float64 `json:"radians"`
}

// ChannelPoint returns the location of one channel of a multichannel sound.
// Channels are spaced evenly on a circle of radius spread around centre,
// starting at the given angle. A single channel sits at the centre.
func ChannelPoint(centre Point, channel, channels int, spread, radians float64) Point {
	if channels <= 1 {
		return centre
	}
	angle := radians + 2*math.Pi*float64(channel)/float64(channels)
	return Point{
		X: centre.X + spread*math.Cos(angle),
		Y: centre.Y + spread*math.Sin(angle),
	}
}

// Bounds is an axis-aligned rectangle
type Bounds struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// BoundsOf returns the smallest rectangle containing every point. ok is false
// when points is empty.
func BoundsOf(points []Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b = Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b, true
}

// Contains reports whether p lies inside b (edges included)
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Clamp returns the point of b closest to p
func (b Bounds) Clamp(p Point) Point {
	return Point{
		X: math.Max(b.Min.X, math.Min(b.Max.X, p.X)),
		Y: math.Max(b.Min.Y, math.Min(b.Max.Y, p.Y)),
	}
}

// Centre returns the middle of b
func (b Bounds) Centre() Point {
	return Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}
