package grid

import (
	"fmt"

	"drizzle/internal/logger"
	"drizzle/internal/models"
	"drizzle/pkg/geometry"
	"drizzle/pkg/sparse"
)

// Policy selects how overlaps are accumulated into a model.
type Policy int

const (
	// Naive adds value·overlap/area to every covered model pixel, which
	// conserves flux when pixfrac is 1.
	Naive Policy = iota

	// Weighted accumulates the weight overlap/area per model pixel and
	// adds value·weight using the weight accumulated so far, then divides
	// by the final weight once all exposures are in.
	Weighted
)

func (p Policy) String() string {
	switch p {
	case Naive:
		return "naive"
	case Weighted:
		return "weighted"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy accepts "naive" or "weighted".
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "naive", "":
		return Naive, nil
	case "weighted":
		return Weighted, nil
	default:
		return 0, fmt.Errorf("unknown drizzle policy %q", s)
	}
}

// Stats counts the detector/model pixel pairs visited by one enumeration.
type Stats struct {
	Inspected int // pairs whose overlap was computed
	Accepted  int // pairs above NegligibleOverlap
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{Inspected: s.Inspected + o.Inspected, Accepted: s.Accepted + o.Accepted}
}

// visitOverlaps calls visit for every detector/model pixel pair of d with a
// non-negligible overlap, detector pixels in row-major order. It is the one
// enumeration shared by both drizzle policies and matrix assembly.
func (m *ModelImage) visitOverlaps(d *DetectorImage, visit func(o models.Overlap)) Stats {
	var stats Stats
	bounds := m.Bounds()
	orthogonal := m.orthogonalFastPath && d.grid.AxisAligned()

	for row := 0; row < d.Height(); row++ {
		for col := 0; col < d.Width(); col++ {
			dp := d.WorldPixel(col, row)
			box := dp.BoundingBox(geometry.Slack).Intersect(bounds)
			if box.Empty() {
				continue
			}
			for y := box.Bottom; y < box.Top; y++ {
				for x := box.Left; x < box.Right; x++ {
					mp := m.Pixel(x, y)
					var area float64
					if orthogonal {
						area = mp.OrthogonalOverlap(dp)
					} else {
						area = mp.Overlap(dp)
					}
					stats.Inspected++
					if area > NegligibleOverlap {
						stats.Accepted++
						visit(models.Overlap{Col: col, Row: row, X: x, Y: y, Area: area})
					}
				}
			}
		}
	}
	return stats
}

// Overlaps lists every non-negligible overlap between d and the model.
func (m *ModelImage) Overlaps(d *DetectorImage) []models.Overlap {
	out := make([]models.Overlap, 0, 4*d.Count())
	m.visitOverlaps(d, func(o models.Overlap) {
		out = append(out, o)
	})
	return out
}

// accumulate drizzles a single exposure with the given policy. Weighted
// accumulation is not normalized here.
func (m *ModelImage) accumulate(policy Policy, d *DetectorImage) Stats {
	var add func(x, y int, value, weight float64)
	switch policy {
	case Naive:
		add = func(x, y int, value, weight float64) {
			m.image.Add(x, y, value*weight)
		}
	case Weighted:
		// The value is scaled by the weight accumulated so far, including
		// the weight just added for this very contribution.
		add = func(x, y int, value, weight float64) {
			m.variance.Add(x, y, weight)
			m.image.Add(x, y, value*m.variance.At(x, y))
		}
	default:
		panic(fmt.Sprintf("grid: unknown policy %d", int(policy)))
	}

	stats := m.visitOverlaps(d, func(o models.Overlap) {
		add(o.X, o.Y, d.At(o.Col, o.Row), o.Area/d.PixelArea(o.Col, o.Row))
	})
	logger.Logger().Debug("drizzled exposure",
		"policy", policy.String(), "detector", d.grid.String(),
		"inspected", stats.Inspected, "accepted", stats.Accepted)
	return stats
}

// NaiveDrizzle adds the flux of every exposure to the model. The result
// does not depend on the order of images.
func (m *ModelImage) NaiveDrizzle(images ...*DetectorImage) Stats {
	var stats Stats
	for _, d := range images {
		stats = stats.Add(m.accumulate(Naive, d))
	}
	return stats
}

// WeightedDrizzle accumulates every exposure with the running weight and
// then normalizes the model. A model should receive a single
// WeightedDrizzle call per reconstruction, since normalization divides the
// values accumulated so far.
func (m *ModelImage) WeightedDrizzle(images ...*DetectorImage) Stats {
	var stats Stats
	for _, d := range images {
		stats = stats.Add(m.accumulate(Weighted, d))
	}
	m.Normalize()
	return stats
}

// Drizzle dispatches to NaiveDrizzle or WeightedDrizzle.
func (m *ModelImage) Drizzle(policy Policy, images ...*DetectorImage) (Stats, error) {
	switch policy {
	case Naive:
		return m.NaiveDrizzle(images...), nil
	case Weighted:
		return m.WeightedDrizzle(images...), nil
	default:
		return Stats{}, fmt.Errorf("unknown drizzle policy %d", int(policy))
	}
}

// Normalize divides every value by its accumulated weight. Pixels without
// weight are set to Unobserved.
func (m *ModelImage) Normalize() {
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			w := m.variance.At(x, y)
			if w == 0 {
				m.image.Set(x, y, Unobserved)
			} else {
				m.image.Set(x, y, m.image.At(x, y)/w)
			}
		}
	}
}

// OverlapMatrix returns the sparse matrix of overlap areas between d and the
// model. Row d.Width()*row + col is detector pixel (col, row); column
// m.Width()*y + x is model pixel (x, y). The model and d are only read.
func (m *ModelImage) OverlapMatrix(d *DetectorImage) *sparse.Matrix {
	return m.assemble(d, false)
}

// ContributionMatrix is OverlapMatrix with every entry divided by the
// detector pixel area. Its transpose applied to the detector values gives
// the naive drizzle of d.
func (m *ModelImage) ContributionMatrix(d *DetectorImage) *sparse.Matrix {
	return m.assemble(d, true)
}

func (m *ModelImage) assemble(d *DetectorImage, normalized bool) *sparse.Matrix {
	b := sparse.NewBuilder(d.Count(), m.Count())
	detWidth, modelWidth := d.Width(), m.Width()

	stats := m.visitOverlaps(d, func(o models.Overlap) {
		v := o.Area
		if normalized {
			v /= d.PixelArea(o.Col, o.Row)
		}
		b.Add(detWidth*o.Row+o.Col, modelWidth*o.Y+o.X, v)
	})
	out := b.Build()
	logger.Logger().Debug("assembled overlap matrix",
		"detector", d.grid.String(), "rows", d.Count(), "cols", m.Count(),
		"inspected", stats.Inspected, "nonZeros", out.NonZeros())
	return out
}
