package geometry

import (
	"fmt"
	"math"
	"sort"
)

// Pixel is a parallelogram given by four corners in counter-clockwise order:
// A (bottom-left), B (bottom-right), C (top-right) and D (top-left).
// All pixels produced by a grid are rigid transforms of an axis-aligned
// rectangle, so the parallelogram assumption always holds for them.
type Pixel struct {
	A, B, C, D Point
}

// NewPixel builds a pixel from its corners in ring order.
func NewPixel(bottomLeft, bottomRight, topRight, topLeft Point) Pixel {
	return Pixel{A: bottomLeft, B: bottomRight, C: topRight, D: topLeft}
}

// Rect returns the axis-aligned pixel [left, right] × [bottom, top].
func Rect(left, bottom, right, top float64) Pixel {
	return Pixel{
		A: Pt(left, bottom),
		B: Pt(right, bottom),
		C: Pt(right, top),
		D: Pt(left, top),
	}
}

// InvalidPixel is returned for out-of-range pixel queries.
func InvalidPixel() Pixel {
	nan := InvalidPoint()
	return Pixel{A: nan, B: nan, C: nan, D: nan}
}

// IsValid reports whether all four corners are valid.
func (p Pixel) IsValid() bool {
	return p.A.IsValid() && p.B.IsValid() && p.C.IsValid() && p.D.IsValid()
}

// Corners returns the corners in ring order A, B, C, D.
func (p Pixel) Corners() [4]Point {
	return [4]Point{p.A, p.B, p.C, p.D}
}

// Area is the area of the parallelogram spanned by AB and AD.
func (p Pixel) Area() float64 {
	return math.Abs(p.B.Sub(p.A).Cross(p.D.Sub(p.A)))
}

// Contains reports whether point lies inside the pixel, boundary included
// with a small slack.
func (p Pixel) Contains(point Point) bool {
	ab := p.B.Sub(p.A)
	ad := p.D.Sub(p.A)
	ax := point.Sub(p.A)

	det := ab.Cross(ad)
	if det == 0 {
		return false
	}
	// Coordinates of ax in the (ab, ad) basis.
	t := ax.Cross(ad) / det
	u := ab.Cross(ax) / det
	return -Slack <= t && t <= 1+Slack && -Slack <= u && u <= 1+Slack
}

// BoundingBox returns the smallest integer box covering the pixel expanded
// by slack on every side.
func (p Pixel) BoundingBox(slack float64) Box {
	minX, maxX, minY, maxY := p.extent()
	return Box{
		Left:   int(math.Floor(minX - slack)),
		Right:  int(math.Ceil(maxX + slack)),
		Bottom: int(math.Floor(minY - slack)),
		Top:    int(math.Ceil(maxY + slack)),
	}
}

func (p Pixel) extent() (minX, maxX, minY, maxY float64) {
	minX = math.Min(math.Min(p.A.X, p.B.X), math.Min(p.C.X, p.D.X))
	maxX = math.Max(math.Max(p.A.X, p.B.X), math.Max(p.C.X, p.D.X))
	minY = math.Min(math.Min(p.A.Y, p.B.Y), math.Min(p.C.Y, p.D.Y))
	maxY = math.Max(math.Max(p.A.Y, p.B.Y), math.Max(p.C.Y, p.D.Y))
	return minX, maxX, minY, maxY
}

// Translated returns the pixel moved by shift.
func (p Pixel) Translated(shift Point) Pixel {
	return Pixel{A: p.A.Add(shift), B: p.B.Add(shift), C: p.C.Add(shift), D: p.D.Add(shift)}
}

// Rotated returns the pixel rotated by angle about the point about.
func (p Pixel) Rotated(angle float64, about Point) Pixel {
	return Pixel{
		A: p.A.RotatedAbout(angle, about),
		B: p.B.RotatedAbout(angle, about),
		C: p.C.RotatedAbout(angle, about),
		D: p.D.RotatedAbout(angle, about),
	}
}

type vertex struct {
	p     Point
	angle float64
}

// Overlap returns the area of the intersection of two convex quadrilaterals.
//
// The intersection polygon is bounded by the corners of either pixel that
// lie inside the other and by the crossings of their edges. Those
// candidates are ordered by azimuth around their centroid and measured with
// the shoelace formula.
func (p Pixel) Overlap(other Pixel) float64 {
	vertices := make([]vertex, 0, 24)

	mine := p.Corners()
	theirs := other.Corners()

	for _, c := range mine {
		if other.Contains(c) {
			vertices = append(vertices, vertex{p: c})
		}
	}
	for _, c := range theirs {
		if p.Contains(c) {
			vertices = append(vertices, vertex{p: c})
		}
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			x := LineSegmentIntersection(mine[i], mine[(i+1)%4], theirs[j], theirs[(j+1)%4])
			if x.IsValid() {
				vertices = append(vertices, vertex{p: x})
			}
		}
	}

	if len(vertices) < 3 {
		return 0
	}

	var centre Point
	for _, v := range vertices {
		centre = centre.Add(v.p)
	}
	centre = centre.Scale(1 / float64(len(vertices)))
	for i := range vertices {
		vertices[i].p = vertices[i].p.Sub(centre)
		vertices[i].angle = vertices[i].p.Slope()
	}
	sort.Slice(vertices, func(i, j int) bool {
		return vertices[i].angle < vertices[j].angle
	})

	n := len(vertices)
	shoelace := 0.0
	for i := 0; i < n; i++ {
		next := vertices[(i+1)%n].p
		prev := vertices[(i-1+n)%n].p
		shoelace += vertices[i].p.X * (next.Y - prev.Y)
	}
	return math.Abs(shoelace) * 0.5
}

// Union returns the area covered by either pixel.
func (p Pixel) Union(other Pixel) float64 {
	return p.Area() + other.Area() - p.Overlap(other)
}

// OrthogonalOverlap computes the overlap from the axis-aligned extents of
// both pixels. It agrees with Overlap only when both pixels are axis-aligned.
func (p Pixel) OrthogonalOverlap(other Pixel) float64 {
	minX, maxX, minY, maxY := p.extent()
	oMinX, oMaxX, oMinY, oMaxY := other.extent()
	return IntervalOverlap(minX, maxX, oMinX, oMaxX) * IntervalOverlap(minY, maxY, oMinY, oMaxY)
}

func (p Pixel) String() string {
	return fmt.Sprintf("(%v, %v, %v, %v)", p.A, p.B, p.C, p.D)
}
