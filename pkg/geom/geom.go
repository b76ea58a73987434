// Package geom holds the pixel-space geometry shared by rendering and hit-testing.
package geom

import "math"

// Epsilon is the length below which a vector is treated as zero
const Epsilon = 1e-9

// Pixel is a screen coordinate
type Pixel struct {
	X, Y float64
}

// Pt is shorthand for Pixel{x, y}
func Pt(x, y float64) Pixel { return Pixel{X: x, Y: y} }

// Add returns p+q
func (p Pixel) Add(q Pixel) Pixel { return Pixel{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q
func (p Pixel) Sub(q Pixel) Pixel { return Pixel{p.X - q.X, p.Y - q.Y} }

// Scale returns p*k
func (p Pixel) Scale(k float64) Pixel { return Pixel{p.X * k, p.Y * k} }

// Dot returns the dot product of p and q
func (p Pixel) Dot(q Pixel) float64 { return p.X*q.X + p.Y*q.Y }

// Len returns the euclidean length of p
func (p Pixel) Len() float64 { return math.Hypot(p.X, p.Y) }

// Distance returns the euclidean distance between a and b
func Distance(a, b Pixel) float64 { return a.Sub(b).Len() }

// DistanceToSegment returns the distance from p to the segment a-b. The
// projection parameter is clamped to [0,1]; a zero-length segment degrades to
// the distance to a.
func DistanceToSegment(p, a, b Pixel) float64 {
	ab := b.Sub(a)
	lenSq := ab.Dot(ab)
	if lenSq < Epsilon {
		return Distance(p, a)
	}

	t := p.Sub(a).Dot(ab) / lenSq
	t = math.Max(0, math.Min(1, t))

	return Distance(p, a.Add(ab.Scale(t)))
}

// PointInPolygon runs the even-odd ray casting test over the ordered vertices
func PointInPolygon(p Pixel, polygon []Pixel) bool {
	inside := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		vi, vj := polygon[i], polygon[j]
		if (vi.Y > p.Y) != (vj.Y > p.Y) &&
			p.X < (vj.X-vi.X)*(p.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
	}
	return inside
}

// RectCorners returns the four corners of the axis-aligned box spanned by a and b,
// clockwise from the top-left.
func RectCorners(a, b Pixel) []Pixel {
	minX, maxX := math.Min(a.X, b.X), math.Max(a.X, b.X)
	minY, maxY := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return []Pixel{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}}
}

// RotatedRectCorners derives the rectangle whose base is p1-p2 and whose height
// is the component of p3-p1 perpendicular to the base. The corners are returned
// as p1, p2, p2+perp, p1+perp. ok is false when the base has zero length.
func RotatedRectCorners(p1, p2, p3 Pixel) (corners []Pixel, ok bool) {
	base := p2.Sub(p1)
	lenSq := base.Dot(base)
	if lenSq < Epsilon {
		return nil, false
	}

	v := p3.Sub(p1)
	projection := base.Scale(v.Dot(base) / lenSq)
	perp := v.Sub(projection)

	return []Pixel{p1, p2, p2.Add(perp), p1.Add(perp)}, true
}

// Rect is an axis-aligned box given by its top-left corner and size
type Rect struct {
	X, Y, W, H float64
}

// Expand grows the rectangle by margin on every side
func (r Rect) Expand(margin float64) Rect {
	return Rect{X: r.X - margin, Y: r.Y - margin, W: r.W + 2*margin, H: r.H + 2*margin}
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Pixel) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}
