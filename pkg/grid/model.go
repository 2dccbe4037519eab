package grid

import (
	"fmt"

	"drizzle/pkg/geometry"
)

// Unobserved marks weighted-drizzle pixels that received no weight.
const Unobserved = -1.0

// ModelImage is the reconstruction target. Its pixels are unit squares on
// the integer grid: pixel (x, y) covers [x, x+1] × [y, y+1]. Besides the
// values it keeps the weight accumulator used by weighted drizzle.
type ModelImage struct {
	grid     *PlacedGrid
	image    *Image
	variance *Image

	orthogonalFastPath bool
}

// NewModelImage creates an empty width×height model.
func NewModelImage(width, height int) (*ModelImage, error) {
	g, err := NewPlacedGrid(width, height, Placement{
		Center:         geometry.Pt(float64(width)/2, float64(height)/2),
		PhysicalWidth:  float64(width),
		PhysicalHeight: float64(height),
	})
	if err != nil {
		return nil, err
	}
	return &ModelImage{
		grid:               g,
		image:              NewImage(width, height),
		variance:           NewImage(width, height),
		orthogonalFastPath: true,
	}, nil
}

// Grid returns the model's placement. It must not be moved; drizzle assumes
// unit pixels anchored at the origin.
func (m *ModelImage) Grid() *PlacedGrid { return m.grid }

// Image returns the accumulated values.
func (m *ModelImage) Image() *Image { return m.image }

// Variance returns the weight accumulator of weighted drizzle.
func (m *ModelImage) Variance() *Image { return m.variance }

func (m *ModelImage) Width() int  { return m.grid.Width() }
func (m *ModelImage) Height() int { return m.grid.Height() }
func (m *ModelImage) Count() int  { return m.grid.Count() }

func (m *ModelImage) At(x, y int) float64 { return m.image.At(x, y) }

func (m *ModelImage) Set(x, y int, v float64) { m.image.Set(x, y, v) }

// TotalFlux returns the sum of all values.
func (m *ModelImage) TotalFlux() float64 { return m.image.Sum() }

// Bounds is the box of valid pixel indices.
func (m *ModelImage) Bounds() geometry.Box {
	return geometry.Box{Left: 0, Right: m.Width(), Bottom: 0, Top: m.Height()}
}

// Pixel returns the unit square of pixel (x, y), or an invalid pixel
// outside the model.
func (m *ModelImage) Pixel(x, y int) geometry.Pixel {
	if x < 0 || x >= m.Width() || y < 0 || y >= m.Height() {
		return geometry.InvalidPixel()
	}
	left, bottom := float64(x), float64(y)
	return geometry.Rect(left, bottom, left+1, bottom+1)
}

// SetOrthogonalFastPath enables or disables the interval-product overlap
// for axis-aligned detector grids. It is enabled by default; the polygon
// clip is always used for rotated grids.
func (m *ModelImage) SetOrthogonalFastPath(enabled bool) {
	m.orthogonalFastPath = enabled
}

// OrthogonalFastPath reports whether the interval-product overlap is used
// for axis-aligned detector grids.
func (m *ModelImage) OrthogonalFastPath() bool { return m.orthogonalFastPath }

// Reset zeroes values and weights.
func (m *ModelImage) Reset() {
	m.image.Fill(0)
	m.variance.Fill(0)
}

// Clone returns an independent copy.
func (m *ModelImage) Clone() *ModelImage {
	return &ModelImage{
		grid:               m.grid.Clone(),
		image:              m.image.Clone(),
		variance:           m.variance.Clone(),
		orthogonalFastPath: m.orthogonalFastPath,
	}
}

// Add adds the values of other, which must have the same size.
func (m *ModelImage) Add(other *ModelImage) error {
	return m.image.AddImage(other.image)
}

// Dot returns the dot product of both models' values.
func (m *ModelImage) Dot(other *ModelImage) (float64, error) {
	return m.image.Dot(other.image)
}

// RMSDifference returns the root mean square difference of both models.
func (m *ModelImage) RMSDifference(other *ModelImage) (float64, error) {
	return m.image.RMSDifference(other.image)
}

// Similarity returns the cosine similarity of both models.
func (m *ModelImage) Similarity(other *ModelImage) (float64, error) {
	return m.image.Similarity(other.image)
}

func (m *ModelImage) String() string {
	return fmt.Sprintf("model image %d×%d", m.Width(), m.Height())
}
