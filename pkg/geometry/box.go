package geometry

import (
	"fmt"
	"math"
)

// Box is an axis-aligned integer rectangle [Left, Right) × [Bottom, Top).
// It only prunes the search space; exact areas of rotated pixels always go
// through Pixel.Overlap.
type Box struct {
	Left, Right, Bottom, Top int
}

// Empty reports whether the box has no interior.
func (b Box) Empty() bool {
	return b.Left >= b.Right || b.Bottom >= b.Top
}

func (b Box) Width() int {
	if b.Empty() {
		return 0
	}
	return b.Right - b.Left
}

func (b Box) Height() int {
	if b.Empty() {
		return 0
	}
	return b.Top - b.Bottom
}

// Intersect returns the largest box contained in both b and other. The
// result may be empty.
func (b Box) Intersect(other Box) Box {
	return Box{
		Left:   max(b.Left, other.Left),
		Right:  min(b.Right, other.Right),
		Bottom: max(b.Bottom, other.Bottom),
		Top:    min(b.Top, other.Top),
	}
}

// Overlap returns the area shared by two boxes.
func (b Box) Overlap(other Box) float64 {
	return IntervalOverlap(float64(b.Left), float64(b.Right), float64(other.Left), float64(other.Right)) *
		IntervalOverlap(float64(b.Bottom), float64(b.Top), float64(other.Bottom), float64(other.Top))
}

// Pixel converts the box to a Pixel for exact intersection tests.
func (b Box) Pixel() Pixel {
	return Rect(float64(b.Left), float64(b.Bottom), float64(b.Right), float64(b.Top))
}

func (b Box) String() string {
	return fmt.Sprintf("[%d, %d) × [%d, %d)", b.Left, b.Right, b.Bottom, b.Top)
}

// IntervalOverlap returns the length of [a0, a1] ∩ [b0, b1].
func IntervalOverlap(a0, a1, b0, b1 float64) float64 {
	if a1 <= b0 || a0 >= b1 {
		return 0
	}
	return math.Min(a1, b1) - math.Max(a0, b0)
}
