// Package visualization renders images as grayscale pictures, profile cuts
// and ASCII art.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"drizzle/pkg/grid"
)

// asciiRamp maps values in [0, 1] to characters in steps of 0.1.
const asciiRamp = " .,-=oO8%@"

// Viewer renders a single image. Grid row 0 is the bottom of every rendered
// picture.
type Viewer struct {
	image *grid.Image
}

// NewViewer creates a viewer over im. The image is not copied.
func NewViewer(im *grid.Image) *Viewer {
	return &Viewer{image: im}
}

// ExtractProfile returns the values along a line of the image: for axis
// "x" the column at x = position from bottom to top, for axis "y" the row at
// y = position from left to right.
func (v *Viewer) ExtractProfile(axis string, position int) ([]float64, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	w, h := v.image.Size()

	switch axis {
	case "x", "X":
		if position >= w {
			return nil, fmt.Errorf("position %d exceeds width %d", position, w)
		}
		out := make([]float64, h)
		for y := range out {
			out[y] = v.image.At(position, y)
		}
		return out, nil

	case "y", "Y":
		if position >= h {
			return nil, fmt.Errorf("position %d exceeds height %d", position, h)
		}
		out := make([]float64, w)
		for x := range out {
			out[x] = v.image.At(x, position)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x or y)", axis)
	}
}

// ExtractRegion copies a rectangular part of the image.
func (v *Viewer) ExtractRegion(startX, startY, sizeX, sizeY int) (*grid.Image, error) {
	if startX < 0 || startY < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}
	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}
	w, h := v.image.Size()
	if startX+sizeX > w || startY+sizeY > h {
		return nil, fmt.Errorf("region extends beyond image boundaries")
	}

	return grid.NewImage(sizeX, sizeY).Map(func(x, y int) float64 {
		return v.image.At(startX+x, startY+y)
	}), nil
}

// levels returns the range used for normalization, ignoring unobserved
// pixels. A constant image maps to mid-gray.
func (v *Viewer) levels() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	w, h := v.image.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			val := v.image.At(x, y)
			if val == grid.Unobserved {
				continue
			}
			lo = math.Min(lo, val)
			hi = math.Max(hi, val)
		}
	}
	return lo, hi
}

// ToImage returns the image as 16-bit grayscale, linearly stretched between
// its smallest and largest observed value. Unobserved pixels are black.
func (v *Viewer) ToImage() *image.Gray16 {
	w, h := v.image.Size()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	lo, hi := v.levels()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			val := v.image.At(x, y)
			var level float64
			switch {
			case val == grid.Unobserved:
				level = 0
			case hi > lo:
				level = (val - lo) / (hi - lo)
			default:
				level = 0.5
			}
			gray := uint16(math.Max(0, math.Min(65535, level*65535)))
			img.SetGray16(x, h-1-y, color.Gray16{Y: gray})
		}
	}
	return img
}

// SaveImage writes the image to filename, choosing the encoder by extension:
// .png, .jpg/.jpeg, .bmp or .tif/.tiff.
func (v *Viewer) SaveImage(filename string) error {
	return encode(v.ToImage(), filename)
}

// SavePreview writes a width×height rendition of the image, resampled with
// a Catmull-Rom kernel.
func (v *Viewer) SavePreview(filename string, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("preview size must be positive, got %dx%d", width, height)
	}
	src := v.ToImage()
	dst := image.NewGray16(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return encode(dst, filename)
}

// ASCII renders the image top row first, every value printed repeat times
// with the ramp " .,-=oO8%@". Values are used as they are, so they should
// lie in [0, 1].
func (v *Viewer) ASCII(repeat int) string {
	if repeat < 1 {
		repeat = 1
	}
	w, h := v.image.Size()
	var sb strings.Builder
	sb.Grow((w*repeat + 1) * h)
	for y := h - 1; y >= 0; y-- {
		for x := 0; x < w; x++ {
			c := Character(v.image.At(x, y))
			for i := 0; i < repeat; i++ {
				sb.WriteByte(c)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Character returns the ramp character for a value in [0, 1]; values below
// 0.1 are blank and values from 0.9 upwards are '@'.
func Character(value float64) byte {
	if !(value >= 0) {
		return asciiRamp[0]
	}
	i := int(value * 10)
	if i >= len(asciiRamp) {
		i = len(asciiRamp) - 1
	}
	return asciiRamp[i]
}

// SaveSequence writes one JPEG per image into outputDir, named
// prefix_000.jpg, prefix_001.jpg and so on.
func SaveSequence(outputDir, prefix string, images ...*grid.Image) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errors.Wrapf(err, "creating %s", outputDir)
	}
	for i, im := range images {
		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%03d.jpg", prefix, i))
		if err := NewViewer(im).SaveImage(filename); err != nil {
			return err
		}
	}
	return nil
}

func encode(img image.Image, filename string) error {
	var enc func(w io.Writer, img image.Image) error
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".png":
		enc = png.Encode
	case ".jpg", ".jpeg":
		enc = func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
		}
	case ".bmp":
		enc = bmp.Encode
	case ".tif", ".tiff":
		enc = func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}
	default:
		return fmt.Errorf("unsupported image format %q", ext)
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "creating %s", filename)
	}
	if err := enc(file, img); err != nil {
		file.Close()
		return errors.Wrapf(err, "encoding %s", filename)
	}
	return errors.Wrapf(file.Close(), "closing %s", filename)
}
