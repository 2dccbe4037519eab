package reconstruction

import (
	"fmt"

	"drizzle/internal/models"
	"drizzle/pkg/config"
	"drizzle/pkg/geometry"
	"drizzle/pkg/grid"
	"drizzle/pkg/imageio"
)

// Exposure is a detector image still to be loaded: a sample source and the
// placement it is drizzled with.
type Exposure struct {
	Name      string
	Source    grid.SampleSource
	Placement grid.Placement

	// PixelWidth and PixelHeight size an axis whose physical size is zero;
	// zero means one world unit.
	PixelWidth, PixelHeight float64
}

// Load reads the samples and places them. An axis without a physical size
// gets PixelWidth (or PixelHeight) per pixel.
func (e Exposure) Load() (*grid.DetectorImage, error) {
	im, err := grid.ImageFromSource(e.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to load exposure %s: %w", e.Name, err)
	}
	pw, ph := e.PixelWidth, e.PixelHeight
	if pw == 0 {
		pw = 1
	}
	if ph == 0 {
		ph = 1
	}

	p := e.Placement
	var d *grid.DetectorImage
	if p.PhysicalWidth == 0 && p.PhysicalHeight == 0 {
		var g *grid.PlacedGrid
		g, err = grid.NewPlacedGridFromPixelSize(im.Width(), im.Height(), pw, ph, p)
		if err == nil {
			d, err = grid.NewDetectorImageOnGrid(g, im)
		}
	} else {
		if p.PhysicalWidth == 0 {
			p.PhysicalWidth = pw * float64(im.Width())
		}
		if p.PhysicalHeight == 0 {
			p.PhysicalHeight = ph * float64(im.Height())
		}
		d, err = grid.NewDetectorImageFromImage(im, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to place exposure %s: %w", e.Name, err)
	}
	return d, nil
}

// ExposuresFromConfig builds sample sources for configured exposures.
func ExposuresFromConfig(cfg []config.Exposure) ([]Exposure, error) {
	out := make([]Exposure, 0, len(cfg))
	for i, e := range cfg {
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("exposure_%03d", i)
		}

		var src grid.SampleSource
		switch e.Kind {
		case "file":
			src = imageio.File{Path: e.Path}
		case "raw":
			src = imageio.Raw{Path: e.Path, Width: e.Width, Height: e.Height}
		case "constant":
			src = imageio.Constant{Width: e.Width, Height: e.Height, Value: e.Value}
		case "weibull":
			src = imageio.Weibull{Width: e.Width, Height: e.Height, Seed: e.Seed}
		case "checkerboard":
			src = imageio.Checkerboard(e.Width, e.Height, int(e.Value))
		default:
			return nil, fmt.Errorf("exposure %s: unknown kind %q", name, e.Kind)
		}

		out = append(out, Exposure{
			Name:   name,
			Source: src,
			Placement: grid.Placement{
				Center:         geometry.Pt(e.CenterX, e.CenterY),
				PhysicalWidth:  e.PhysicalWidth,
				PhysicalHeight: e.PhysicalHeight,
				Rotation:       e.Rotation,
				PixfracX:       e.PixfracX,
				PixfracY:       e.PixfracY,
			},
			PixelWidth:  e.PixelWidth,
			PixelHeight: e.PixelHeight,
		})
	}
	return out, nil
}

func summarize(name string, d *grid.DetectorImage) models.Exposure {
	c := d.Grid().Center()
	return models.Exposure{
		Name:     name,
		Width:    d.Width(),
		Height:   d.Height(),
		CenterX:  c.X,
		CenterY:  c.Y,
		Rotation: d.Grid().Rotation(),
	}
}
