package imageio

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

func checkGeneratorSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidSize, "generator size %dx%d", width, height)
	}
	return nil
}

// Constant yields Width×Height copies of Value.
type Constant struct {
	Width, Height int
	Value         float64
}

func (c Constant) Samples() ([]float64, int, int, error) {
	if err := checkGeneratorSize(c.Width, c.Height); err != nil {
		return nil, 0, 0, err
	}
	data := make([]float64, c.Width*c.Height)
	for i := range data {
		data[i] = c.Value
	}
	return data, c.Width, c.Height, nil
}

// Weibull yields independent Weibull(Shape, Scale) samples. A zero Shape or
// Scale is read as 1. Equal seeds give equal data.
type Weibull struct {
	Width, Height int
	Shape, Scale  float64
	Seed          uint64
}

func (w Weibull) Samples() ([]float64, int, int, error) {
	if err := checkGeneratorSize(w.Width, w.Height); err != nil {
		return nil, 0, 0, err
	}
	dist := distuv.Weibull{K: w.Shape, Lambda: w.Scale, Src: rand.NewSource(w.Seed)}
	if dist.K == 0 {
		dist.K = 1
	}
	if dist.Lambda == 0 {
		dist.Lambda = 1
	}
	data := make([]float64, w.Width*w.Height)
	for i := range data {
		data[i] = dist.Rand()
	}
	return data, w.Width, w.Height, nil
}

// Pattern evaluates Func at every pixel; (0, 0) is the bottom-left pixel.
type Pattern struct {
	Width, Height int
	Func          func(x, y int) float64
}

func (p Pattern) Samples() ([]float64, int, int, error) {
	if err := checkGeneratorSize(p.Width, p.Height); err != nil {
		return nil, 0, 0, err
	}
	if p.Func == nil {
		return nil, 0, 0, errors.New("pattern without a function")
	}
	data := make([]float64, 0, p.Width*p.Height)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			data = append(data, p.Func(x, y))
		}
	}
	return data, p.Width, p.Height, nil
}

// Checkerboard returns a pattern of alternating 0 and 1 squares of the given
// side length.
func Checkerboard(width, height, side int) Pattern {
	if side < 1 {
		side = 1
	}
	return Pattern{Width: width, Height: height, Func: func(x, y int) float64 {
		return float64((x/side + y/side) % 2)
	}}
}
