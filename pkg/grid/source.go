package grid

// SampleSource yields a rectangular array of values in row-major order,
// index width*row + col. Implementations either return valid data or fail
// with an error describing the cause.
type SampleSource interface {
	Samples() (data []float64, width, height int, err error)
}

// SampleSink consumes a rectangular row-major array of values.
type SampleSink interface {
	WriteSamples(data []float64, width, height int) error
}

// ImageFromSource loads an image from src, checking that the reported size
// matches the data.
func ImageFromSource(src SampleSource) (*Image, error) {
	data, width, height, err := src.Samples()
	if err != nil {
		return nil, err
	}
	return NewImageFromData(width, height, data)
}

// WriteImage hands the values of im to sink.
func WriteImage(im *Image, sink SampleSink) error {
	return sink.WriteSamples(im.Data(), im.width, im.height)
}
