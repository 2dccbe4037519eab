package imageio

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Raw is a headerless dump of little-endian float64 values in row-major
// order. The size is not stored in the file and must be given.
type Raw struct {
	Path          string
	Width, Height int
}

// Samples implements grid.SampleSource.
func (r Raw) Samples() ([]float64, int, int, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, 0, 0, errors.Wrapf(ErrInvalidSize, "raw size %dx%d", r.Width, r.Height)
	}
	file, err := os.Open(filepath.Clean(r.Path))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "opening raw samples")
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "stat raw samples")
	}
	if want := int64(8 * r.Width * r.Height); info.Size() != want {
		return nil, 0, 0, errors.Wrapf(ErrInvalidSize, "%s has %d bytes, expected %d for %dx%d",
			r.Path, info.Size(), want, r.Width, r.Height)
	}

	data := make([]float64, r.Width*r.Height)
	if err := binary.Read(bufio.NewReader(file), binary.LittleEndian, data); err != nil {
		return nil, 0, 0, errors.Wrapf(err, "reading %s", r.Path)
	}
	return data, r.Width, r.Height, nil
}

// WriteSamples implements grid.SampleSink.
func (r Raw) WriteSamples(data []float64, width, height int) error {
	if len(data) != width*height {
		return errors.Wrapf(ErrInvalidSize, "%d values for %dx%d", len(data), width, height)
	}
	file, err := os.Create(filepath.Clean(r.Path))
	if err != nil {
		return errors.Wrap(err, "creating raw samples")
	}
	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		file.Close()
		return errors.Wrapf(err, "writing %s", r.Path)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return errors.Wrapf(err, "writing %s", r.Path)
	}
	return errors.Wrapf(file.Close(), "closing %s", r.Path)
}
