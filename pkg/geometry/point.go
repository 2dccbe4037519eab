// Package geometry provides the planar primitives used by drizzle: points,
// quadrilateral pixels and integer boxes, together with the exact
// intersection area of two convex quadrilaterals.
package geometry

import (
	"fmt"
	"math"
)

const (
	// Slack absorbs floating point error in containment and segment
	// parameter tests at shared boundaries.
	Slack = 1e-12

	// MinDeterminant is the smallest determinant for which two segments
	// are not considered parallel.
	MinDeterminant = 1e-15
)

// Point is a 2D coordinate or displacement.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// InvalidPoint returns the sentinel meaning "no intersection".
func InvalidPoint() Point {
	return Point{X: math.NaN(), Y: math.NaN()}
}

// IsValid reports whether neither component is NaN.
func (p Point) IsValid() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y)
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

func (p Point) Neg() Point {
	return Point{X: -p.X, Y: -p.Y}
}

// Rotated returns p rotated counter-clockwise by angle radians about the origin.
func (p Point) Rotated(angle float64) Point {
	sin, cos := math.Sincos(angle)
	return Point{X: cos*p.X - sin*p.Y, Y: sin*p.X + cos*p.Y}
}

// RotatedAbout rotates p by angle about the point about.
func (p Point) RotatedAbout(angle float64, about Point) Point {
	return p.Sub(about).Rotated(angle).Add(about)
}

func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Cross returns the z component of the 3D cross product of p and q.
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

func (p Point) SquaredNorm() float64 {
	return p.Dot(p)
}

func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Slope returns the polar angle of p in (-π, π].
func (p Point) Slope() float64 {
	return math.Atan2(p.Y, p.X)
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// LineSegmentIntersection returns the intersection of segments p0–p1 and
// q0–q1, or InvalidPoint when the segments are (nearly) parallel or do not
// meet within their extents.
func LineSegmentIntersection(p0, p1, q0, q1 Point) Point {
	p := p1.Sub(p0)
	q := q1.Sub(q0)
	b := q0.Sub(p0)

	det := p.Cross(q)
	if math.Abs(det) < MinDeterminant {
		return InvalidPoint()
	}

	t := b.Cross(q) / det
	u := b.Cross(p) / det
	if t < -Slack || t > 1+Slack || u < -Slack || u > 1+Slack {
		return InvalidPoint()
	}
	return p0.Add(p.Scale(t))
}
