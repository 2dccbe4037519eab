package reconstruction

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"drizzle/pkg/grid"
)

// Metrics compares a reconstruction with a reference image.
type Metrics struct {
	// RMSE is the root mean square difference per pixel. Lower is better.
	RMSE float64

	// Similarity is the cosine of the angle between both images seen as
	// vectors, 1 for images equal up to scale.
	Similarity float64

	// Angle is arccos(Similarity) in radians.
	Angle float64

	// Correlation is the Pearson correlation of pixel values, 0 when either
	// image is constant.
	Correlation float64

	// ReferenceFlux and ReconstructionFlux are the totals of both images.
	ReferenceFlux      float64
	ReconstructionFlux float64
}

// CompareImages computes Metrics for two images of equal size.
func CompareImages(reference, reconstructed *grid.Image) (Metrics, error) {
	var m Metrics
	var err error

	if m.RMSE, err = reference.RMSDifference(reconstructed); err != nil {
		return Metrics{}, err
	}
	if m.Similarity, err = reference.Similarity(reconstructed); err != nil {
		return Metrics{}, err
	}
	m.Angle = math.Acos(math.Max(-1, math.Min(1, m.Similarity)))

	m.Correlation = stat.Correlation(reference.Data(), reconstructed.Data(), nil)
	if math.IsNaN(m.Correlation) {
		m.Correlation = 0
	}

	m.ReferenceFlux = reference.Sum()
	m.ReconstructionFlux = reconstructed.Sum()
	return m, nil
}
