package reconstruction

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drizzle/pkg/config"
	"drizzle/pkg/grid"
	"drizzle/pkg/imageio"
)

const tolerance = 1e-9

func TestOneToOne(t *testing.T) {
	im, err := grid.ImageFromSource(imageio.Weibull{Width: 6, Height: 5, Seed: 3})
	require.NoError(t, err)

	model, err := OneToOne(im)
	require.NoError(t, err)
	if diff := cmp.Diff(im.Data(), model.Image().Data(), cmpopts.EquateApprox(0, tolerance)); diff != "" {
		t.Errorf("one-to-one mismatch (-input +model):\n%s", diff)
	}
}

func TestDownsample(t *testing.T) {
	input := grid.NewImage(8, 8).Fill(1)
	exposures, err := Downsample(input, DownsampleOptions{
		ModelWidth: 4, ModelHeight: 4, ShiftsX: 2, ShiftsY: 2, PixfracX: 1, PixfracY: 1,
	})
	require.NoError(t, err)
	require.Len(t, exposures, 4)

	unshifted := exposures[0]
	assert.Equal(t, 4, unshifted.Width())
	assert.InDelta(t, 4, unshifted.Grid().Center().X, tolerance)
	w, h := unshifted.Grid().PhysicalSize()
	assert.Equal(t, 8.0, w)
	assert.Equal(t, 8.0, h)
	// Each low-resolution pixel carries the flux of four input pixels.
	assert.InDelta(t, 4, unshifted.At(1, 2), tolerance)
	assert.InDelta(t, input.Sum(), unshifted.Image().Sum(), tolerance)

	// Exposure 1 is shifted half a low-resolution pixel to the right, which
	// places it one input pixel to the left.
	shifted := exposures[1]
	assert.InDelta(t, 3, shifted.Grid().Center().X, tolerance)
	assert.InDelta(t, 4, shifted.Grid().Center().Y, tolerance)
	assert.InDelta(t, 2, shifted.At(0, 0), tolerance)

	_, err = Downsample(input, DownsampleOptions{ModelWidth: 4, ModelHeight: 4})
	assert.Error(t, err)
}

func TestDownsampleRotated(t *testing.T) {
	// The value of every input pixel is its column.
	input := grid.NewImage(8, 8).Map(func(x, y int) float64 { return float64(x) })
	exposures, err := Downsample(input, DownsampleOptions{
		ModelWidth: 4, ModelHeight: 4, ShiftsX: 1, ShiftsY: 1, Rotations: []float64{0, math.Pi / 2},
	})
	require.NoError(t, err)
	require.Len(t, exposures, 2)

	rotated := exposures[1]
	assert.InDelta(t, -math.Pi/2, rotated.Grid().Rotation(), tolerance)
	assert.InDelta(t, 4, rotated.Grid().Center().X, tolerance)
	assert.InDelta(t, 4, rotated.Grid().Center().Y, tolerance)
	assert.InDelta(t, input.Sum(), rotated.Image().Sum(), tolerance)

	// Both orientations drizzle back to the 2×2 block means of the input,
	// so the gradient runs along x in either case.
	for i, d := range exposures {
		model, err := grid.NewModelImage(8, 8)
		require.NoError(t, err)
		model.NaiveDrizzle(d)
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				want := float64(2*(x/2)) + 0.5
				assert.InDelta(t, want, model.At(x, y), tolerance, "exposure %d pixel (%d, %d)", i, x, y)
			}
		}
	}

	// A quarter turn of a non-uniform scaling cannot be placed back.
	_, err = Downsample(grid.NewImage(8, 4), DownsampleOptions{
		ModelWidth: 4, ModelHeight: 4, ShiftsX: 1, ShiftsY: 1, Rotations: []float64{math.Pi / 2},
	})
	assert.ErrorContains(t, err, "equal scale factors")
	_, err = Downsample(grid.NewImage(8, 4), DownsampleOptions{
		ModelWidth: 4, ModelHeight: 4, ShiftsX: 1, ShiftsY: 1, Rotations: []float64{math.Pi},
	})
	assert.NoError(t, err)
}

func TestResampleWithRotationsReconstructsConstantImage(t *testing.T) {
	reconstructor := NewReconstructor(&Params{
		Resample: &ResampleParams{
			Input: imageio.Constant{Width: 8, Height: 8, Value: 0.5},
			DownsampleOptions: DownsampleOptions{
				ModelWidth: 4, ModelHeight: 4, ShiftsX: 1, ShiftsY: 1,
				Rotations: []float64{0, math.Pi / 2},
			},
		},
		Policy:   grid.Naive,
		NumCores: 2,
	})
	require.NoError(t, reconstructor.Process())

	model := reconstructor.GetModel()
	require.Equal(t, 8, model.Width())
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			assert.InDelta(t, 0.5, model.At(x, y), tolerance, "pixel (%d, %d)", x, y)
		}
	}
	summaries := reconstructor.Exposures()
	require.Len(t, summaries, 2)
	assert.InDelta(t, -math.Pi/2, summaries[1].Rotation, tolerance)

	m, ok := reconstructor.GetMetrics()
	require.True(t, ok)
	assert.InDelta(t, 0, m.RMSE, tolerance)
	assert.InDelta(t, 1, m.Similarity, tolerance)
}

func TestResampleReconstructsConstantImage(t *testing.T) {
	reconstructor := NewReconstructor(&Params{
		Resample: &ResampleParams{
			Input: imageio.Constant{Width: 8, Height: 8, Value: 0.5},
			DownsampleOptions: DownsampleOptions{
				ModelWidth: 4, ModelHeight: 4, ShiftsX: 2, ShiftsY: 2, PixfracX: 1, PixfracY: 1,
			},
		},
		Policy:   grid.Naive,
		NumCores: 3,
	})
	require.NoError(t, reconstructor.Process())

	model := reconstructor.GetModel()
	require.Equal(t, 8, model.Width())
	for y := 1; y < 7; y++ {
		for x := 1; x < 7; x++ {
			assert.InDelta(t, 0.5, model.At(x, y), tolerance, "pixel (%d, %d)", x, y)
		}
	}
	// The left column misses half of the shifted exposures.
	assert.InDelta(t, 0.375, model.At(0, 3), tolerance)

	m, ok := reconstructor.GetMetrics()
	require.True(t, ok)
	assert.Greater(t, m.Similarity, 0.9)
	assert.InDelta(t, math.Acos(m.Similarity), m.Angle, tolerance)
	assert.InDelta(t, 32, m.ReferenceFlux, tolerance)
	assert.Len(t, reconstructor.Exposures(), 4)
}

func TestCompareImages(t *testing.T) {
	a, err := grid.ImageFromSource(imageio.Weibull{Width: 5, Height: 5, Seed: 8})
	require.NoError(t, err)

	m, err := CompareImages(a, a.Clone())
	require.NoError(t, err)
	assert.InDelta(t, 0, m.RMSE, tolerance)
	assert.InDelta(t, 1, m.Similarity, tolerance)
	assert.InDelta(t, 0, m.Angle, 1e-6)
	assert.InDelta(t, 1, m.Correlation, tolerance)
	assert.InDelta(t, m.ReferenceFlux, m.ReconstructionFlux, tolerance)

	m, err = CompareImages(a, grid.NewImage(5, 5).Fill(2))
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Correlation)

	_, err = CompareImages(a, grid.NewImage(4, 5))
	assert.ErrorIs(t, err, grid.ErrDimensionMismatch)
}

func TestParamsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Processing.Policy = "weighted"
	cfg.Processing.StackAxis = "horizontal"
	cfg.Exposures = []config.Exposure{
		{Kind: "weibull", Width: 3, Height: 3, Seed: 2, CenterX: 5, CenterY: 5},
		{Name: "board", Kind: "checkerboard", Width: 4, Height: 4, Value: 2, Rotation: 0.3},
	}
	cfg.Resample.Enabled = true
	cfg.Resample.Rotations = []float64{0, math.Pi / 2}

	params, err := ParamsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, grid.Weighted, params.Policy)
	assert.Equal(t, "horizontal", params.StackAxis.String())
	require.Len(t, params.Exposures, 2)
	assert.Equal(t, "exposure_000", params.Exposures[0].Name)
	assert.Equal(t, 0.3, params.Exposures[1].Placement.Rotation)

	require.NotNil(t, params.Resample)
	_, ok := params.Resample.Input.(imageio.Weibull)
	assert.True(t, ok, "resampling without input uses noise")
	assert.Equal(t, []float64{0, math.Pi / 2}, params.Resample.Rotations)

	d, err := params.Exposures[1].Load()
	require.NoError(t, err)
	w, _ := d.Grid().PhysicalSize()
	assert.Equal(t, 4.0, w)

	cfg.Exposures = []config.Exposure{{Kind: "constant", Width: 4, Height: 2, PixelWidth: 0.5, PixelHeight: 2}}
	params, err = ParamsFromConfig(cfg)
	require.NoError(t, err)
	d, err = params.Exposures[0].Load()
	require.NoError(t, err)
	w, h := d.Grid().PhysicalSize()
	assert.Equal(t, 2.0, w)
	assert.Equal(t, 4.0, h)

	cfg.Exposures = []config.Exposure{{Kind: "constant", Width: 4, Height: 2, PhysicalWidth: 8, PixelHeight: 3}}
	params, err = ParamsFromConfig(cfg)
	require.NoError(t, err)
	d, err = params.Exposures[0].Load()
	require.NoError(t, err)
	w, h = d.Grid().PhysicalSize()
	assert.Equal(t, 8.0, w)
	assert.Equal(t, 6.0, h)

	cfg.Exposures = []config.Exposure{{Kind: "camera"}}
	_, err = ParamsFromConfig(cfg)
	assert.Error(t, err)
}
