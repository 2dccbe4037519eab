package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Image is a dense width×height array of values addressed by (col, row).
// Storage is a gonum matrix with one matrix row per image row, so the
// flattened index of (col, row) is width*row + col.
type Image struct {
	width, height int
	data          *mat.Dense
}

// NewImage returns a zero-filled image. It panics if either dimension is not
// positive.
func NewImage(width, height int) *Image {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("grid: non-positive image size %d×%d", width, height))
	}
	return &Image{width: width, height: height, data: mat.NewDense(height, width, nil)}
}

// NewImageFromData wraps row-major data of length width*height. The slice
// is used directly, not copied.
func NewImageFromData(width, height int, data []float64) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %d×%d", ErrInvalidSize, width, height)
	}
	if width > math.MaxInt/height {
		return nil, fmt.Errorf("%w: %d×%d overflows", ErrInvalidSize, width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("%w: %d values for a %d×%d image", ErrDimensionMismatch, len(data), width, height)
	}
	return &Image{width: width, height: height, data: mat.NewDense(height, width, data)}, nil
}

func (im *Image) Width() int  { return im.width }
func (im *Image) Height() int { return im.height }
func (im *Image) Count() int  { return im.width * im.height }

// Size returns width and height.
func (im *Image) Size() (width, height int) {
	return im.width, im.height
}

func (im *Image) At(col, row int) float64 {
	return im.data.At(row, col)
}

func (im *Image) Set(col, row int, v float64) {
	im.data.Set(row, col, v)
}

// Add adds v to the value at (col, row).
func (im *Image) Add(col, row int, v float64) {
	im.data.Set(row, col, im.data.At(row, col)+v)
}

// Dense exposes the backing matrix, rows indexed by image row.
func (im *Image) Dense() *mat.Dense {
	return im.data
}

// Data returns a row-major copy of the values.
func (im *Image) Data() []float64 {
	out := make([]float64, 0, im.Count())
	for row := 0; row < im.height; row++ {
		out = append(out, im.data.RawRowView(row)...)
	}
	return out
}

// Vector returns the values flattened row-major as a gonum vector, matching
// the column order of overlap matrices.
func (im *Image) Vector() *mat.VecDense {
	return mat.NewVecDense(im.Count(), im.Data())
}

// Samples implements SampleSource.
func (im *Image) Samples() ([]float64, int, int, error) {
	return im.Data(), im.width, im.height, nil
}

func (im *Image) Clone() *Image {
	return &Image{width: im.width, height: im.height, data: mat.DenseCopyOf(im.data)}
}

func (im *Image) Fill(v float64) *Image {
	return im.MapInPlace(func(float64) float64 { return v })
}

// Map returns a new image whose values are f(col, row).
func (im *Image) Map(f func(col, row int) float64) *Image {
	out := NewImage(im.width, im.height)
	for row := 0; row < im.height; row++ {
		for col := 0; col < im.width; col++ {
			out.Set(col, row, f(col, row))
		}
	}
	return out
}

// MapInPlace replaces every value v with f(v).
func (im *Image) MapInPlace(f func(v float64) float64) *Image {
	im.data.Apply(func(_, _ int, v float64) float64 { return f(v) }, im.data)
	return im
}

// MapReduce folds reduce over the mapped values, starting from init.
func (im *Image) MapReduce(mapFn func(float64) float64, reduce func(acc, v float64) float64, init float64) float64 {
	acc := init
	for row := 0; row < im.height; row++ {
		for _, v := range im.data.RawRowView(row) {
			acc = reduce(acc, mapFn(v))
		}
	}
	return acc
}

// Sum returns the total of all values, the total flux of the image.
func (im *Image) Sum() float64 {
	return mat.Sum(im.data)
}

// Min and Max include sentinel values such as the -1 of unobserved
// weighted-drizzle pixels.
func (im *Image) Min() float64 { return mat.Min(im.data) }
func (im *Image) Max() float64 { return mat.Max(im.data) }

// Scale multiplies every value by f.
func (im *Image) Scale(f float64) *Image {
	im.data.Scale(f, im.data)
	return im
}

// Bin sums non-overlapping bx×by blocks into a smaller image. Both sizes
// must divide the image size.
func (im *Image) Bin(bx, by int) (*Image, error) {
	if bx <= 0 || by <= 0 || im.width%bx != 0 || im.height%by != 0 {
		return nil, fmt.Errorf("%w: cannot bin %d×%d by %d×%d", ErrInvalidSize, im.width, im.height, bx, by)
	}
	out := NewImage(im.width/bx, im.height/by)
	for row := 0; row < im.height; row++ {
		for col := 0; col < im.width; col++ {
			out.Add(col/bx, row/by, im.At(col, row))
		}
	}
	return out, nil
}

func (im *Image) sameSize(other *Image, op string) error {
	if im.width != other.width || im.height != other.height {
		return fmt.Errorf("%w: %s of %d×%d and %d×%d images",
			ErrDimensionMismatch, op, im.width, im.height, other.width, other.height)
	}
	return nil
}

// AddImage adds other to im value by value.
func (im *Image) AddImage(other *Image) error {
	if err := im.sameSize(other, "sum"); err != nil {
		return err
	}
	im.data.Add(im.data, other.data)
	return nil
}

// Difference returns im − other.
func (im *Image) Difference(other *Image) (*Image, error) {
	if err := im.sameSize(other, "difference"); err != nil {
		return nil, err
	}
	out := NewImage(im.width, im.height)
	out.data.Sub(im.data, other.data)
	return out, nil
}

// Dot returns the sum of products of corresponding values.
func (im *Image) Dot(other *Image) (float64, error) {
	if err := im.sameSize(other, "dot product"); err != nil {
		return 0, err
	}
	return floats.Dot(im.Data(), other.Data()), nil
}

// RMSDifference returns the root mean square of im − other.
func (im *Image) RMSDifference(other *Image) (float64, error) {
	if err := im.sameSize(other, "squared difference"); err != nil {
		return 0, err
	}
	d := floats.Distance(im.Data(), other.Data(), 2)
	return d / math.Sqrt(float64(im.Count())), nil
}

// Similarity returns the cosine of the angle between both images seen as
// vectors. Zero images have similarity 0.
func (im *Image) Similarity(other *Image) (float64, error) {
	dot, err := im.Dot(other)
	if err != nil {
		return 0, err
	}
	na := floats.Norm(im.Data(), 2)
	nb := floats.Norm(other.Data(), 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (na * nb), nil
}

func (im *Image) String() string {
	return fmt.Sprintf("%d×%d image, total %g", im.width, im.height, im.Sum())
}
