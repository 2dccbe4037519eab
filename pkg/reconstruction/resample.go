package reconstruction

import (
	"fmt"
	"math"

	"drizzle/internal/logger"
	"drizzle/pkg/geometry"
	"drizzle/pkg/grid"
)

// DownsampleOptions controls how one input is turned into a set of shifted
// low-resolution exposures.
type DownsampleOptions struct {
	// ModelWidth and ModelHeight are the size of every low-resolution exposure
	ModelWidth, ModelHeight int

	// ShiftsX and ShiftsY are the number of sub-pixel shifts per axis; shift
	// (i, j) moves the input by (i/ShiftsX, j/ShiftsY) low-resolution pixels
	ShiftsX, ShiftsY int

	// PixfracX and PixfracY are the fill factors of the produced exposures
	PixfracX, PixfracY float64

	// Rotations lists the angles in radians at which the input is seen; every
	// rotation gets the full set of shifts. Empty means a single unrotated
	// set. Angles other than multiples of π need the same scale factor on
	// both axes.
	Rotations []float64
}

// rotationTolerance bounds |sin θ| for a rotation to keep the axes in place.
const rotationTolerance = 1e-12

func (o DownsampleOptions) validate() error {
	if o.ModelWidth <= 0 || o.ModelHeight <= 0 {
		return fmt.Errorf("%w: downsampled size %d×%d", grid.ErrInvalidSize, o.ModelWidth, o.ModelHeight)
	}
	if o.ShiftsX <= 0 || o.ShiftsY <= 0 {
		return fmt.Errorf("shift counts must be positive, got %d×%d", o.ShiftsX, o.ShiftsY)
	}
	return nil
}

// OneToOne drizzles input onto a model of the same size with unit pixels,
// which reproduces the input. It is the reference for resampling
// experiments.
func OneToOne(input *grid.Image) (*grid.ModelImage, error) {
	w, h := input.Size()
	d, err := grid.NewDetectorImageFromImage(input, grid.Placement{
		Center:         geometry.Pt(float64(w)/2, float64(h)/2),
		PhysicalWidth:  float64(w),
		PhysicalHeight: float64(h),
	})
	if err != nil {
		return nil, err
	}
	model, err := grid.NewModelImage(w, h)
	if err != nil {
		return nil, err
	}
	model.NaiveDrizzle(d)
	return model, nil
}

// Downsample synthesizes ShiftsX·ShiftsY low-resolution exposures of input
// per rotation. The input is scaled onto a ModelWidth×ModelHeight grid,
// shifted by a fraction of a low-resolution pixel, rotated about its centre
// and drizzled; each result is placed back in the input's coordinates with
// the inverse shift and rotation. Exposures are ordered by rotation, then
// vertical shift, then horizontal shift.
func Downsample(input *grid.Image, opts DownsampleOptions) ([]*grid.DetectorImage, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	w, h := input.Size()
	mw, mh := float64(opts.ModelWidth), float64(opts.ModelHeight)
	// Pixel size of the exposures in input coordinates
	kx, ky := float64(w)/mw, float64(h)/mh

	rotations := opts.Rotations
	if len(rotations) == 0 {
		rotations = []float64{0}
	}
	for _, angle := range rotations {
		if w*opts.ModelHeight != h*opts.ModelWidth && math.Abs(math.Sin(angle)) > rotationTolerance {
			return nil, fmt.Errorf("rotation %g needs equal scale factors, got %d×%d onto %d×%d",
				angle, w, h, opts.ModelWidth, opts.ModelHeight)
		}
	}

	out := make([]*grid.DetectorImage, 0, len(rotations)*opts.ShiftsX*opts.ShiftsY)
	for _, angle := range rotations {
		scaled, err := grid.NewDetectorImageFromImage(input, grid.Placement{
			Center:         geometry.Pt(mw/2, mh/2),
			PhysicalWidth:  mw,
			PhysicalHeight: mh,
			Rotation:       angle,
		})
		if err != nil {
			return nil, err
		}

		for j := 0; j < opts.ShiftsY; j++ {
			for i := 0; i < opts.ShiftsX; i++ {
				shift := geometry.Pt(float64(i)/float64(opts.ShiftsX), float64(j)/float64(opts.ShiftsY))

				temp, err := grid.NewModelImage(opts.ModelWidth, opts.ModelHeight)
				if err != nil {
					return nil, err
				}
				temp.NaiveDrizzle(scaled.Shifted(shift))

				offset := geometry.Pt(shift.X*kx, shift.Y*ky).Rotated(-angle)
				d, err := grid.NewDetectorImageFromImage(temp.Image(), grid.Placement{
					Center:         geometry.Pt(float64(w)/2, float64(h)/2).Sub(offset),
					PhysicalWidth:  float64(w),
					PhysicalHeight: float64(h),
					Rotation:       -angle,
					PixfracX:       opts.PixfracX,
					PixfracY:       opts.PixfracY,
				})
				if err != nil {
					return nil, err
				}
				logger.Logger().Debug("downsampled input",
					"size", fmt.Sprintf("%d×%d", opts.ModelWidth, opts.ModelHeight),
					"shiftX", shift.X, "shiftY", shift.Y, "rotation", angle, "flux", temp.TotalFlux())
				out = append(out, d)
			}
		}
	}
	return out, nil
}
