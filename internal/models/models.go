package models

// Overlap records that detector pixel (Col, Row) covers Area of model pixel
// (X, Y).
type Overlap struct {
	Col, Row int
	X, Y     int
	Area     float64
}

// Exposure summarises one detector image as configured for a run.
type Exposure struct {
	// Name identifies the exposure in logs and output files
	Name string

	// Width and Height are the logical size in pixels
	Width, Height int

	// CenterX, CenterY are the world coordinates of the exposure centre
	CenterX, CenterY float64

	// Rotation is the counter-clockwise rotation in radians
	Rotation float64
}

// Reconstruction is a model image produced by a run, flattened row-major.
type Reconstruction struct {
	// Data holds Width*Height values, index Width*y + x
	Data []float64

	// Width and Height are the model size in pixels
	Width, Height int

	// Flux is the sum of all observed values
	Flux float64
}

// MatrixSummary describes an assembled overlap matrix.
type MatrixSummary struct {
	Rows, Cols int
	NonZeros   int
	Sum        float64
}
