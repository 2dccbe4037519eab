package sparse

import (
	"fmt"

	"drizzle/internal/logger"
)

// Axis selects the direction along which matrices are concatenated.
type Axis int

const (
	// Vertical stacks matrices on top of each other: rows add up and the
	// column counts must match.
	Vertical Axis = iota
	// Horizontal places matrices side by side: columns add up and the row
	// counts must match.
	Horizontal
)

func (a Axis) String() string {
	switch a {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis accepts "vertical" or "horizontal".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "vertical", "v", "rows":
		return Vertical, nil
	case "horizontal", "h", "cols":
		return Horizontal, nil
	default:
		return 0, fmt.Errorf("unknown stacking axis %q", s)
	}
}

// Stack concatenates matrices along axis. Every stored entry is re-emitted
// with its index offset by the extent of the preceding matrices and the
// result is compressed once. The dimension across the axis must agree for
// all inputs; stacking nothing yields an empty 0×0 matrix.
func Stack(matrices []*Matrix, axis Axis) (*Matrix, error) {
	if axis != Vertical && axis != Horizontal {
		return nil, fmt.Errorf("cannot stack along unknown axis %s", axis)
	}
	along, across := 0, 0
	for i, m := range matrices {
		numAlong, numAcross := m.rows, m.cols
		if axis == Horizontal {
			numAlong, numAcross = m.cols, m.rows
		}
		if i > 0 && numAcross != across {
			return nil, fmt.Errorf("%w: cannot stack %s, matrix %d is %d×%d but previous ones have %d %s",
				ErrDimensionMismatch, axis, i, m.rows, m.cols, across, acrossName(axis))
		}
		across = numAcross
		along += numAlong
	}

	rows, cols := along, across
	if axis == Horizontal {
		rows, cols = across, along
	}

	b := NewBuilder(rows, cols)
	base := 0
	for _, m := range matrices {
		m.DoNonZero(func(i, j int, v float64) {
			if axis == Vertical {
				b.Add(i+base, j, v)
			} else {
				b.Add(i, j+base, v)
			}
		})
		if axis == Vertical {
			base += m.rows
		} else {
			base += m.cols
		}
	}

	out := b.Build()
	logger.Logger().Debug("stacked sparse matrices",
		"count", len(matrices), "axis", axis.String(), "rows", rows, "cols", cols, "nonZeros", out.NonZeros())
	return out, nil
}

// VStack is Stack(matrices, Vertical).
func VStack(matrices ...*Matrix) (*Matrix, error) {
	return Stack(matrices, Vertical)
}

// HStack is Stack(matrices, Horizontal).
func HStack(matrices ...*Matrix) (*Matrix, error) {
	return Stack(matrices, Horizontal)
}

func acrossName(axis Axis) string {
	if axis == Vertical {
		return "columns"
	}
	return "rows"
}
