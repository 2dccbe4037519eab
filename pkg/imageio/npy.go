package imageio

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// MaxSamples bounds the number of values a single array may hold.
const MaxSamples = 1 << 28

// ReadNPY reads a two-dimensional array in NumPy format. Little-endian
// float64, float32, int32 and int64 in C order are supported.
func ReadNPY(path string) ([]float64, int, int, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "opening npy")
	}
	defer file.Close()

	data, width, height, err := DecodeNPY(bufio.NewReader(file))
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "reading %s", path)
	}
	return data, width, height, nil
}

// DecodeNPY parses a NumPy stream. The array shape (rows, cols) maps to
// height and width.
func DecodeNPY(r io.Reader) ([]float64, int, int, error) {
	npy, err := npyio.NewReader(r)
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "npy header")
	}
	descr := npy.Header.Descr
	if descr.Fortran {
		return nil, 0, 0, errors.New("npy arrays must be in C order")
	}
	if len(descr.Shape) != 2 {
		return nil, 0, 0, errors.Errorf("npy array is not two-dimensional: shape %v", descr.Shape)
	}
	height, width := descr.Shape[0], descr.Shape[1]
	if err := checkSize(width, height); err != nil {
		return nil, 0, 0, errors.Wrap(err, "npy shape")
	}

	dtype := descr.Type
	if strings.HasPrefix(dtype, ">") {
		return nil, 0, 0, errors.Errorf("big-endian npy dtype %s", dtype)
	}
	dtype = strings.TrimLeft(dtype, "<=|")

	var data []float64
	switch dtype {
	case "f8":
		err = npy.Read(&data)
	case "f4":
		var buf []float32
		if err = npy.Read(&buf); err == nil {
			data = widen(buf)
		}
	case "i4":
		var buf []int32
		if err = npy.Read(&buf); err == nil {
			data = widen(buf)
		}
	case "i8":
		var buf []int64
		if err = npy.Read(&buf); err == nil {
			data = widen(buf)
		}
	default:
		return nil, 0, 0, errors.Errorf("unsupported npy dtype %s", descr.Type)
	}
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "npy data")
	}
	if len(data) != width*height {
		return nil, 0, 0, errors.Wrapf(ErrInvalidSize, "%d npy values for shape (%d, %d)", len(data), height, width)
	}
	return data, width, height, nil
}

// checkSize rejects empty shapes and shapes whose value count overflows or
// exceeds MaxSamples.
func checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidSize, "%dx%d", width, height)
	}
	if width > math.MaxInt/height || width*height > MaxSamples {
		return errors.Wrapf(ErrInvalidSize, "%dx%d exceeds %d values", width, height, MaxSamples)
	}
	return nil
}

func widen[T float32 | int32 | int64](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// WriteNPY stores data as a (height, width) float64 array.
func WriteNPY(path string, data []float64, width, height int) error {
	file, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrap(err, "creating npy")
	}
	w := bufio.NewWriter(file)
	if err := EncodeNPY(w, data, width, height); err != nil {
		file.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(file.Close(), "closing %s", path)
}

// EncodeNPY writes data as a little-endian float64 NumPy array of shape
// (height, width).
func EncodeNPY(w io.Writer, data []float64, width, height int) error {
	if err := checkSize(width, height); err != nil {
		return err
	}
	if len(data) != width*height {
		return errors.Wrapf(ErrInvalidSize, "%d values for %dx%d", len(data), width, height)
	}
	return npyio.Write(w, mat.NewDense(height, width, data))
}
