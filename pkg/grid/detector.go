package grid

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"drizzle/pkg/geometry"
)

// DetectorImage is an input exposure: a placed grid with sample data of the
// same logical size.
type DetectorImage struct {
	grid  *PlacedGrid
	image *Image
}

// NewDetectorImage creates a zero-filled width×height exposure.
func NewDetectorImage(width, height int, p Placement) (*DetectorImage, error) {
	g, err := NewPlacedGrid(width, height, p)
	if err != nil {
		return nil, err
	}
	return &DetectorImage{grid: g, image: NewImage(width, height)}, nil
}

// NewDetectorImageFromImage places existing samples; the logical size is
// taken from the image. The image is not copied.
func NewDetectorImageFromImage(im *Image, p Placement) (*DetectorImage, error) {
	g, err := NewPlacedGrid(im.Width(), im.Height(), p)
	if err != nil {
		return nil, err
	}
	return &DetectorImage{grid: g, image: im}, nil
}

// NewDetectorImageOnGrid pairs existing samples with an existing grid of the
// same logical size. Neither is copied.
func NewDetectorImageOnGrid(g *PlacedGrid, im *Image) (*DetectorImage, error) {
	if g.Width() != im.Width() || g.Height() != im.Height() {
		return nil, fmt.Errorf("%w: %d×%d samples on a %d×%d grid",
			ErrDimensionMismatch, im.Width(), im.Height(), g.Width(), g.Height())
	}
	return &DetectorImage{grid: g, image: im}, nil
}

// NewDetectorImageFromSource loads samples from src and places them.
func NewDetectorImageFromSource(src SampleSource, p Placement) (*DetectorImage, error) {
	im, err := ImageFromSource(src)
	if err != nil {
		return nil, err
	}
	return NewDetectorImageFromImage(im, p)
}

// Grid returns the placement of the exposure. Mutating it moves the exposure.
func (d *DetectorImage) Grid() *PlacedGrid { return d.grid }

// Image returns the sample data.
func (d *DetectorImage) Image() *Image { return d.image }

func (d *DetectorImage) Width() int  { return d.grid.Width() }
func (d *DetectorImage) Height() int { return d.grid.Height() }
func (d *DetectorImage) Count() int  { return d.grid.Count() }

func (d *DetectorImage) At(col, row int) float64 { return d.image.At(col, row) }

func (d *DetectorImage) Set(col, row int, v float64) { d.image.Set(col, row, v) }

func (d *DetectorImage) WorldPixel(col, row int) geometry.Pixel { return d.grid.WorldPixel(col, row) }

func (d *DetectorImage) PixelArea(col, row int) float64 { return d.grid.PixelArea(col, row) }

func (d *DetectorImage) Fill(v float64) *DetectorImage {
	d.image.Fill(v)
	return d
}

// Randomize fills the exposure with Weibull(1, 1) noise drawn from a source
// seeded with seed.
func (d *DetectorImage) Randomize(seed uint64) *DetectorImage {
	dist := distuv.Weibull{K: 1, Lambda: 1, Src: rand.NewSource(seed)}
	d.image.MapInPlace(func(float64) float64 { return dist.Rand() })
	return d
}

// Clone returns a deep copy of placement and data.
func (d *DetectorImage) Clone() *DetectorImage {
	return &DetectorImage{grid: d.grid.Clone(), image: d.image.Clone()}
}

// Shifted returns a copy whose placement is moved by delta. The data is
// shared with d.
func (d *DetectorImage) Shifted(delta geometry.Point) *DetectorImage {
	return &DetectorImage{grid: d.grid.Shifted(delta), image: d.image}
}

func (d *DetectorImage) String() string {
	return fmt.Sprintf("detector image: %v", d.grid)
}
