// Package grid places logical pixel grids in world coordinates and
// implements drizzle: resampling detector exposures onto a model image by
// exact pixel overlap, either by accumulating flux or by assembling a sparse
// overlap matrix for an inverse reconstruction.
package grid

import (
	"errors"
	"fmt"
	"math"

	"drizzle/pkg/geometry"
)

var (
	// ErrDimensionMismatch is returned by arithmetic between images of
	// different sizes.
	ErrDimensionMismatch = errors.New("grid: dimension mismatch")

	// ErrInvalidSize is returned for non-positive logical sizes.
	ErrInvalidSize = errors.New("grid: invalid size")

	// ErrInvalidPlacement is returned for non-positive physical sizes or a
	// pixfrac outside (0, 1].
	ErrInvalidPlacement = errors.New("grid: invalid placement")
)

const (
	// NegligibleOverlap is the overlap area below which a detector/model
	// pixel pair contributes nothing.
	NegligibleOverlap = 1e-15

	// axisAlignedTolerance bounds |sin 2θ| for a rotation to count as a
	// multiple of 90°.
	axisAlignedTolerance = 1e-15
)

// Placement positions a grid in the world. A zero pixfrac is read as 1.
type Placement struct {
	Center         geometry.Point
	PhysicalWidth  float64
	PhysicalHeight float64
	Rotation       float64 // radians, counter-clockwise
	PixfracX       float64
	PixfracY       float64
}

// PlacedGrid maps logical pixel indices of a W×H grid to quadrilaterals in
// world coordinates. The logical size is fixed at construction; centre,
// physical size, rotation and pixfrac may change.
type PlacedGrid struct {
	width, height int

	center      geometry.Point
	physWidth   float64
	physHeight  float64
	rotation    float64
	pixfracX    float64
	pixfracY    float64
	pixelWidth  float64
	pixelHeight float64
}

// NewPlacedGrid creates a width×height grid with the given placement.
func NewPlacedGrid(width, height int, p Placement) (*PlacedGrid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %d×%d", ErrInvalidSize, width, height)
	}
	if p.PixfracX == 0 {
		p.PixfracX = 1
	}
	if p.PixfracY == 0 {
		p.PixfracY = 1
	}
	if err := checkPlacement(p); err != nil {
		return nil, err
	}
	return &PlacedGrid{
		width:       width,
		height:      height,
		center:      p.Center,
		physWidth:   p.PhysicalWidth,
		physHeight:  p.PhysicalHeight,
		rotation:    p.Rotation,
		pixfracX:    p.PixfracX,
		pixfracY:    p.PixfracY,
		pixelWidth:  p.PhysicalWidth / float64(width),
		pixelHeight: p.PhysicalHeight / float64(height),
	}, nil
}

// NewPlacedGridFromPixelSize creates a grid whose physical size is derived
// from the size of a single pixel. The physical size in p is ignored.
func NewPlacedGridFromPixelSize(width, height int, pixelWidth, pixelHeight float64, p Placement) (*PlacedGrid, error) {
	p.PhysicalWidth = pixelWidth * float64(width)
	p.PhysicalHeight = pixelHeight * float64(height)
	return NewPlacedGrid(width, height, p)
}

func checkPlacement(p Placement) error {
	if !(p.PhysicalWidth > 0) || !(p.PhysicalHeight > 0) {
		return fmt.Errorf("%w: physical size %g×%g", ErrInvalidPlacement, p.PhysicalWidth, p.PhysicalHeight)
	}
	if !(p.PixfracX > 0 && p.PixfracX <= 1) || !(p.PixfracY > 0 && p.PixfracY <= 1) {
		return fmt.Errorf("%w: pixfrac (%g, %g) outside (0, 1]", ErrInvalidPlacement, p.PixfracX, p.PixfracY)
	}
	return nil
}

func (g *PlacedGrid) Width() int  { return g.width }
func (g *PlacedGrid) Height() int { return g.height }
func (g *PlacedGrid) Count() int  { return g.width * g.height }

func (g *PlacedGrid) Center() geometry.Point { return g.center }
func (g *PlacedGrid) Rotation() float64      { return g.rotation }

func (g *PlacedGrid) PhysicalSize() (width, height float64) {
	return g.physWidth, g.physHeight
}

func (g *PlacedGrid) PixelSize() (width, height float64) {
	return g.pixelWidth, g.pixelHeight
}

func (g *PlacedGrid) Pixfrac() (x, y float64) {
	return g.pixfracX, g.pixfracY
}

// Placement returns the current placement.
func (g *PlacedGrid) Placement() Placement {
	return Placement{
		Center:         g.center,
		PhysicalWidth:  g.physWidth,
		PhysicalHeight: g.physHeight,
		Rotation:       g.rotation,
		PixfracX:       g.pixfracX,
		PixfracY:       g.pixfracY,
	}
}

// PixelArea is the nominal (unshrunk) area of pixel (col, row). All pixels
// of a grid currently share the same area.
func (g *PlacedGrid) PixelArea(col, row int) float64 {
	_, _ = col, row
	return g.pixelWidth * g.pixelHeight
}

// AxisAligned reports whether the grid's pixels are aligned with the world
// axes, i.e. the rotation is a multiple of 90°.
func (g *PlacedGrid) AxisAligned() bool {
	return math.Abs(math.Sin(2*g.rotation)) <= axisAlignedTolerance
}

func (g *PlacedGrid) inRange(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// GridCenter returns the centre of pixel (x, y) relative to the grid centre,
// before rotation.
func (g *PlacedGrid) GridCenter(x, y int) geometry.Point {
	lx := (float64(x)+0.5)/float64(g.width)*g.physWidth - g.physWidth*0.5
	ly := (float64(y)+0.5)/float64(g.height)*g.physHeight - g.physHeight*0.5
	return geometry.Pt(lx, ly)
}

// WorldCenter returns the centre of pixel (x, y) in world coordinates.
func (g *PlacedGrid) WorldCenter(x, y int) geometry.Point {
	return g.GridCenter(x, y).Rotated(g.rotation).Add(g.center)
}

// GridPixel returns pixel (x, y) relative to the grid centre, shrunk by
// pixfrac and not yet rotated. Out-of-range indices give an invalid pixel.
func (g *PlacedGrid) GridPixel(x, y int) geometry.Pixel {
	if !g.inRange(x, y) {
		return geometry.InvalidPixel()
	}
	c := g.GridCenter(x, y)
	hw := g.pixelWidth * g.pixfracX * 0.5
	hh := g.pixelHeight * g.pixfracY * 0.5
	return geometry.Rect(c.X-hw, c.Y-hh, c.X+hw, c.Y+hh)
}

// WorldPixel returns pixel (x, y) rotated and translated into world
// coordinates. Out-of-range indices give an invalid pixel.
func (g *PlacedGrid) WorldPixel(x, y int) geometry.Pixel {
	raw := g.GridPixel(x, y)
	if !raw.IsValid() {
		return raw
	}
	return geometry.NewPixel(
		raw.A.Rotated(g.rotation).Add(g.center),
		raw.B.Rotated(g.rotation).Add(g.center),
		raw.C.Rotated(g.rotation).Add(g.center),
		raw.D.Rotated(g.rotation).Add(g.center),
	)
}

// WorldCorners returns the outer corners of the whole grid in world
// coordinates: bottom-left, bottom-right, top-right, top-left.
func (g *PlacedGrid) WorldCorners() [4]geometry.Point {
	hw, hh := g.physWidth*0.5, g.physHeight*0.5
	return [4]geometry.Point{
		geometry.Pt(-hw, -hh).Rotated(g.rotation).Add(g.center),
		geometry.Pt(hw, -hh).Rotated(g.rotation).Add(g.center),
		geometry.Pt(hw, hh).Rotated(g.rotation).Add(g.center),
		geometry.Pt(-hw, hh).Rotated(g.rotation).Add(g.center),
	}
}

// Shift moves the grid centre by delta.
func (g *PlacedGrid) Shift(delta geometry.Point) *PlacedGrid {
	g.center = g.center.Add(delta)
	return g
}

// Scale multiplies the physical size, and with it the pixel size, by f,
// which must be positive.
func (g *PlacedGrid) Scale(f float64) error {
	return g.ScaleXY(f, f)
}

// ScaleXY scales the physical size per axis. The grid is left unchanged if
// either factor is not positive.
func (g *PlacedGrid) ScaleXY(fx, fy float64) error {
	if !(fx > 0) || !(fy > 0) {
		return fmt.Errorf("%w: scale factors (%g, %g)", ErrInvalidPlacement, fx, fy)
	}
	g.physWidth *= fx
	g.physHeight *= fy
	g.pixelWidth *= fx
	g.pixelHeight *= fy
	return nil
}

// Rotate adds angle radians to the grid rotation.
func (g *PlacedGrid) Rotate(angle float64) *PlacedGrid {
	g.rotation += angle
	return g
}

func (g *PlacedGrid) SetCenter(c geometry.Point) *PlacedGrid {
	g.center = c
	return g
}

func (g *PlacedGrid) SetRotation(angle float64) *PlacedGrid {
	g.rotation = angle
	return g
}

// SetPhysicalSize changes the physical extent, keeping the logical size.
func (g *PlacedGrid) SetPhysicalSize(width, height float64) error {
	if !(width > 0) || !(height > 0) {
		return fmt.Errorf("%w: physical size %g×%g", ErrInvalidPlacement, width, height)
	}
	g.physWidth, g.physHeight = width, height
	g.pixelWidth = width / float64(g.width)
	g.pixelHeight = height / float64(g.height)
	return nil
}

// SetPixfrac changes the fill factor per axis.
func (g *PlacedGrid) SetPixfrac(x, y float64) error {
	if !(x > 0 && x <= 1) || !(y > 0 && y <= 1) {
		return fmt.Errorf("%w: pixfrac (%g, %g) outside (0, 1]", ErrInvalidPlacement, x, y)
	}
	g.pixfracX, g.pixfracY = x, y
	return nil
}

// Clone returns an independent copy.
func (g *PlacedGrid) Clone() *PlacedGrid {
	c := *g
	return &c
}

// Shifted returns a copy moved by delta.
func (g *PlacedGrid) Shifted(delta geometry.Point) *PlacedGrid {
	return g.Clone().Shift(delta)
}

func (g *PlacedGrid) String() string {
	return fmt.Sprintf("grid at %v, size %d×%d, extent %.6f×%.6f, rotation %.6f, pixfrac %.3f×%.3f",
		g.center, g.width, g.height, g.physWidth, g.physHeight, g.rotation, g.pixfracX, g.pixfracY)
}
