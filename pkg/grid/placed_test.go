package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drizzle/pkg/geometry"
)

const tolerance = 1e-9

func mustGrid(t *testing.T, w, h int, p Placement) *PlacedGrid {
	t.Helper()
	g, err := NewPlacedGrid(w, h, p)
	require.NoError(t, err)
	return g
}

func TestNewPlacedGridValidation(t *testing.T) {
	_, err := NewPlacedGrid(0, 3, Placement{PhysicalWidth: 1, PhysicalHeight: 1})
	assert.True(t, errors.Is(err, ErrInvalidSize))

	_, err = NewPlacedGrid(2, 2, Placement{PhysicalWidth: -1, PhysicalHeight: 1})
	assert.True(t, errors.Is(err, ErrInvalidPlacement))

	_, err = NewPlacedGrid(2, 2, Placement{PhysicalWidth: 1, PhysicalHeight: 1, PixfracX: 1.5})
	assert.True(t, errors.Is(err, ErrInvalidPlacement))

	g := mustGrid(t, 2, 2, Placement{PhysicalWidth: 1, PhysicalHeight: 1})
	x, y := g.Pixfrac()
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 1.0, y)
}

func TestGridCenterAndWorldPixel(t *testing.T) {
	g := mustGrid(t, 4, 2, Placement{
		Center:         geometry.Pt(10, 20),
		PhysicalWidth:  8,
		PhysicalHeight: 2,
	})

	c := g.GridCenter(0, 0)
	assert.InDelta(t, -3, c.X, tolerance)
	assert.InDelta(t, -0.5, c.Y, tolerance)

	p := g.WorldPixel(3, 1)
	require.True(t, p.IsValid())
	assert.InDelta(t, 12, p.A.X, tolerance)
	assert.InDelta(t, 20, p.A.Y, tolerance)
	assert.InDelta(t, 14, p.C.X, tolerance)
	assert.InDelta(t, 21, p.C.Y, tolerance)
	assert.InDelta(t, 2, p.Area(), tolerance)
	assert.InDelta(t, 2, g.PixelArea(3, 1), tolerance)

	assert.False(t, g.WorldPixel(4, 0).IsValid())
	assert.False(t, g.WorldPixel(0, -1).IsValid())
}

func TestWorldPixelRotationAndPixfrac(t *testing.T) {
	g := mustGrid(t, 1, 1, Placement{
		Center:         geometry.Pt(1, 1),
		PhysicalWidth:  1,
		PhysicalHeight: 1,
		Rotation:       math.Pi / 2,
		PixfracX:       0.5,
		PixfracY:       0.5,
	})
	p := g.WorldPixel(0, 0)
	assert.InDelta(t, 0.25, p.Area(), tolerance)
	// Bottom-left corner (-0.25, -0.25) turns into (0.25, -0.25).
	assert.InDelta(t, 1.25, p.A.X, tolerance)
	assert.InDelta(t, 0.75, p.A.Y, tolerance)
	assert.True(t, p.Contains(geometry.Pt(1, 1)))
	// The nominal area ignores pixfrac.
	assert.InDelta(t, 1, g.PixelArea(0, 0), tolerance)
}

func TestAxisAligned(t *testing.T) {
	g := mustGrid(t, 1, 1, Placement{PhysicalWidth: 1, PhysicalHeight: 1})
	assert.True(t, g.AxisAligned())
	assert.True(t, g.SetRotation(math.Pi).AxisAligned())
	assert.False(t, g.SetRotation(0.1).AxisAligned())
}

func TestGridMutators(t *testing.T) {
	g := mustGrid(t, 2, 2, Placement{Center: geometry.Pt(1, 1), PhysicalWidth: 2, PhysicalHeight: 2})
	s := g.Shifted(geometry.Pt(1, 0))
	assert.Equal(t, geometry.Pt(1, 1), g.Center())
	assert.Equal(t, geometry.Pt(2, 1), s.Center())

	require.NoError(t, g.Scale(2))
	w, h := g.PixelSize()
	assert.InDelta(t, 2, w, tolerance)
	assert.InDelta(t, 2, h, tolerance)

	for _, f := range [][2]float64{{0, 1}, {1, -2}, {math.NaN(), 1}} {
		err := g.ScaleXY(f[0], f[1])
		assert.True(t, errors.Is(err, ErrInvalidPlacement), "factors %v", f)
	}
	assert.Error(t, g.Scale(0))
	pw, ph := g.PhysicalSize()
	assert.InDelta(t, 4, pw, tolerance)
	assert.InDelta(t, 4, ph, tolerance)

	require.NoError(t, g.SetPhysicalSize(1, 3))
	w, h = g.PixelSize()
	assert.InDelta(t, 0.5, w, tolerance)
	assert.InDelta(t, 1.5, h, tolerance)
	assert.Error(t, g.SetPhysicalSize(0, 3))
	assert.Error(t, g.SetPixfrac(0, 1))

	corners := g.WorldCorners()
	assert.InDelta(t, 0.5, corners[0].X, tolerance)
	assert.InDelta(t, -0.5, corners[0].Y, tolerance)
}

func TestPlacedGridFromPixelSize(t *testing.T) {
	g, err := NewPlacedGridFromPixelSize(4, 2, 0.5, 3, Placement{Center: geometry.Pt(1, 3)})
	require.NoError(t, err)
	pw, ph := g.PhysicalSize()
	assert.InDelta(t, 2, pw, tolerance)
	assert.InDelta(t, 6, ph, tolerance)
	assert.InDelta(t, 1.5, g.PixelArea(0, 0), tolerance)

	_, err = NewPlacedGridFromPixelSize(4, 2, 0, 1, Placement{})
	assert.True(t, errors.Is(err, ErrInvalidPlacement))

	d, err := NewDetectorImageOnGrid(g, NewImage(4, 2).Fill(1))
	require.NoError(t, err)
	assert.Same(t, g, d.Grid())

	_, err = NewDetectorImageOnGrid(g, NewImage(2, 4))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}
