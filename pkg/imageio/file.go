// Package imageio loads and stores sample arrays: pictures, NumPy arrays,
// raw float64 dumps and synthetic generators. Every type here implements
// grid.SampleSource, grid.SampleSink or both.
package imageio

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"drizzle/pkg/grid"
	"drizzle/pkg/visualization"
)

var (
	// ErrUnsupportedFormat is returned for file extensions without a codec.
	ErrUnsupportedFormat = errors.New("imageio: unsupported format")

	// ErrInvalidSize is returned when data and size disagree.
	ErrInvalidSize = errors.New("imageio: invalid size")
)

// File reads and writes samples by file extension. Pictures (.png, .jpg,
// .jpeg, .bmp, .tif, .tiff) are read as grayscale in [0, 1]; .npy holds a
// two-dimensional float64 array of shape (height, width).
type File struct {
	Path string
}

func (f File) ext() string {
	return strings.ToLower(filepath.Ext(f.Path))
}

// Samples implements grid.SampleSource.
func (f File) Samples() ([]float64, int, int, error) {
	switch f.ext() {
	case ".npy":
		return ReadNPY(f.Path)
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return f.readPicture()
	default:
		return nil, 0, 0, errors.Wrapf(ErrUnsupportedFormat, "reading %s", f.Path)
	}
}

// WriteSamples implements grid.SampleSink. Pictures are written normalized
// to the value range of data.
func (f File) WriteSamples(data []float64, width, height int) error {
	if len(data) != width*height {
		return errors.Wrapf(ErrInvalidSize, "%d values for %dx%d", len(data), width, height)
	}
	switch f.ext() {
	case ".npy":
		return WriteNPY(f.Path, data, width, height)
	case ".bin":
		return Raw{Path: f.Path, Width: width, Height: height}.WriteSamples(data, width, height)
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		im, err := grid.NewImageFromData(width, height, data)
		if err != nil {
			return err
		}
		return visualization.NewViewer(im).SaveImage(f.Path)
	default:
		return errors.Wrapf(ErrUnsupportedFormat, "writing %s", f.Path)
	}
}

func (f File) readPicture() ([]float64, int, int, error) {
	file, err := os.Open(filepath.Clean(f.Path))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "opening picture")
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, 0, 0, errors.Wrapf(err, "decoding %s", f.Path)
	}
	data, width, height := grayscale(img)
	if width == 0 || height == 0 {
		return nil, 0, 0, errors.Wrapf(ErrInvalidSize, "empty %s picture %s", format, f.Path)
	}
	return data, width, height, nil
}

// grayscale converts img to luminance in [0, 1]. The bottom picture row
// becomes row 0.
func grayscale(img image.Image) ([]float64, int, int) {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	data := make([]float64, width*height)
	for py := 0; py < height; py++ {
		row := height - 1 - py
		for px := 0; px < width; px++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+px, b.Min.Y+py)).(color.Gray16)
			data[width*row+px] = float64(g.Y) / 0xffff
		}
	}
	return data, width, height
}
