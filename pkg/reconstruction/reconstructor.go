// Package reconstruction drives a drizzle run: it loads exposures, drizzles
// them onto a model, optionally assembles the stacked overlap matrix, and
// writes the results.
package reconstruction

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"drizzle/internal/logger"
	"drizzle/internal/models"
	"drizzle/pkg/config"
	"drizzle/pkg/grid"
	"drizzle/pkg/imageio"
	"drizzle/pkg/sparse"
	"drizzle/pkg/visualization"
)

// ResampleParams configures the downsample-and-reconstruct experiment: the
// input is split into shifted low-resolution exposures, which are drizzled
// back and compared with the input.
type ResampleParams struct {
	Input grid.SampleSource
	DownsampleOptions
}

// Params holds the reconstruction parameters.
type Params struct {
	// ModelWidth and ModelHeight are the size of the reconstruction. A
	// resampling run uses the size of its input instead.
	ModelWidth, ModelHeight int

	// Exposures are drizzled onto the model. Ignored when Resample is set.
	Exposures []Exposure

	// Resample replaces the exposures with downsampled copies of one input.
	Resample *ResampleParams

	Policy grid.Policy

	// NumCores bounds the goroutines used for naive drizzle and matrix
	// assembly; zero means all CPUs.
	NumCores int

	// AssembleMatrix builds the overlap matrix of every exposure and stacks
	// them along StackAxis.
	AssembleMatrix bool
	StackAxis      sparse.Axis

	OrthogonalFastPath bool

	// OutputDir receives drizzled.<format> for every entry of Formats.
	OutputDir string
	Formats   []string

	// SaveIntermediaryResults determines whether to save intermediary processing results.
	SaveIntermediaryResults bool

	// IntermediaryDir is where intermediary results are saved.
	IntermediaryDir string
}

// ParamsFromConfig translates a validated configuration.
func ParamsFromConfig(cfg *config.Config) (*Params, error) {
	policy, err := grid.ParsePolicy(cfg.Processing.Policy)
	if err != nil {
		return nil, err
	}
	axis, err := sparse.ParseAxis(cfg.Processing.StackAxis)
	if err != nil {
		return nil, err
	}
	exposures, err := ExposuresFromConfig(cfg.Exposures)
	if err != nil {
		return nil, err
	}

	params := &Params{
		ModelWidth:              cfg.Model.Width,
		ModelHeight:             cfg.Model.Height,
		Exposures:               exposures,
		Policy:                  policy,
		NumCores:                cfg.Processing.NumCores,
		AssembleMatrix:          cfg.Processing.AssembleMatrix,
		StackAxis:               axis,
		OrthogonalFastPath:      cfg.Processing.OrthogonalFastPath,
		OutputDir:               cfg.Output.Dir,
		Formats:                 cfg.Output.Formats,
		SaveIntermediaryResults: cfg.Output.SaveIntermediaryResults,
		IntermediaryDir:         filepath.Join(cfg.Output.Dir, "intermediary"),
	}

	if r := cfg.Resample; r.Enabled {
		var input grid.SampleSource = imageio.Weibull{
			Width:  r.ModelWidth * r.ShiftsX,
			Height: r.ModelHeight * r.ShiftsY,
			Seed:   r.Seed,
		}
		if r.Input != "" {
			input = imageio.File{Path: r.Input}
		}
		params.Resample = &ResampleParams{
			Input: input,
			DownsampleOptions: DownsampleOptions{
				ModelWidth:  r.ModelWidth,
				ModelHeight: r.ModelHeight,
				ShiftsX:     r.ShiftsX,
				ShiftsY:     r.ShiftsY,
				PixfracX:    r.Pixfrac,
				PixfracY:    r.Pixfrac,
				Rotations:   r.Rotations,
			},
		}
	}
	return params, nil
}

// Reconstructor runs one drizzle reconstruction.
//
// The process consists of these steps:
// 1. Loading exposures, or synthesizing them by downsampling one input
// 2. Drizzling them onto the model with the configured policy
// 3. Assembling and stacking overlap matrices, if requested
// 4. Comparing with the reference image of a resampling run
// 5. Writing the model in every configured format
type Reconstructor struct {
	params *Params

	exposures []*grid.DetectorImage
	summaries []models.Exposure

	// reference is the one-to-one drizzle of a resampling input
	reference *grid.ModelImage

	model   *grid.ModelImage
	matrix  *sparse.Matrix
	stats   grid.Stats
	metrics *Metrics
}

// NewReconstructor creates a new reconstructor instance with the provided parameters.
func NewReconstructor(params *Params) *Reconstructor {
	return &Reconstructor{params: params}
}

// Process runs the complete reconstruction pipeline
func (r *Reconstructor) Process() error {
	log := logger.Logger()

	if r.params.SaveIntermediaryResults {
		if err := os.MkdirAll(r.params.IntermediaryDir, 0755); err != nil {
			return fmt.Errorf("failed to create intermediary directory: %w", err)
		}
	}

	log.Info("Step 1: loading exposures")
	if err := r.loadExposures(); err != nil {
		return fmt.Errorf("failed to load exposures: %w", err)
	}
	if r.params.SaveIntermediaryResults {
		images := make([]*grid.Image, len(r.exposures))
		for i, d := range r.exposures {
			images[i] = d.Image()
		}
		dir := filepath.Join(r.params.IntermediaryDir, "01_exposures")
		if err := visualization.SaveSequence(dir, "exposure", images...); err != nil {
			log.Warn("failed to save exposures", "err", err)
		}
	}

	log.Info("Step 2: drizzling", "policy", r.params.Policy.String(), "exposures", len(r.exposures))
	if err := r.drizzle(); err != nil {
		return fmt.Errorf("failed to drizzle: %w", err)
	}
	log.Info("drizzle complete", "inspected", r.stats.Inspected, "accepted", r.stats.Accepted,
		"flux", r.model.TotalFlux())
	if r.params.SaveIntermediaryResults {
		if err := r.saveIntermediaryResult("02_model", r.model.Image(), 0); err != nil {
			log.Warn("failed to save model", "err", err)
		}
		if r.params.Policy == grid.Weighted {
			if err := r.saveIntermediaryResult("02_model", r.model.Variance(), 1); err != nil {
				log.Warn("failed to save weights", "err", err)
			}
		}
	}

	if r.params.AssembleMatrix {
		log.Info("Step 3: assembling overlap matrices", "axis", r.params.StackAxis.String())
		if err := r.assembleMatrix(); err != nil {
			return fmt.Errorf("failed to assemble overlap matrix: %w", err)
		}
		s := r.MatrixSummary()
		log.Info("overlap matrix assembled", "rows", s.Rows, "cols", s.Cols, "nonZeros", s.NonZeros, "sum", s.Sum)
		if r.params.SaveIntermediaryResults {
			if err := r.saveIntermediaryResult("03_matrix", r.matrix, 0); err != nil {
				log.Warn("failed to save matrix", "err", err)
			}
		}
	}

	if r.reference != nil {
		log.Info("Step 4: comparing with reference")
		m, err := CompareImages(r.reference.Image(), r.model.Image())
		if err != nil {
			return fmt.Errorf("failed to compare reconstruction: %w", err)
		}
		r.metrics = &m
		log.Info("resampling metrics", "rmse", m.RMSE, "similarity", m.Similarity, "angle", m.Angle,
			"correlation", m.Correlation)
	}

	log.Info("Step 5: writing results", "dir", r.params.OutputDir)
	if err := r.writeOutputs(); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func (r *Reconstructor) loadExposures() error {
	r.exposures = nil
	r.summaries = nil
	r.reference = nil

	if rp := r.params.Resample; rp != nil {
		input, err := grid.ImageFromSource(rp.Input)
		if err != nil {
			return err
		}
		if r.reference, err = OneToOne(input); err != nil {
			return err
		}
		if r.exposures, err = Downsample(input, rp.DownsampleOptions); err != nil {
			return err
		}
		for i, d := range r.exposures {
			r.summaries = append(r.summaries, summarize(fmt.Sprintf("downsampled_%03d", i), d))
		}
		logger.Logger().Info("downsampled input",
			"input", fmt.Sprintf("%d×%d", input.Width(), input.Height()),
			"exposures", len(r.exposures))
		return nil
	}

	if len(r.params.Exposures) == 0 {
		return fmt.Errorf("no exposures configured")
	}
	for _, e := range r.params.Exposures {
		d, err := e.Load()
		if err != nil {
			return err
		}
		r.exposures = append(r.exposures, d)
		r.summaries = append(r.summaries, summarize(e.Name, d))
		logger.Logger().Debug("loaded exposure", "name", e.Name, "grid", d.Grid().String())
	}
	return nil
}

func (r *Reconstructor) modelSize() (int, int) {
	if r.reference != nil {
		return r.reference.Width(), r.reference.Height()
	}
	return r.params.ModelWidth, r.params.ModelHeight
}

func (r *Reconstructor) drizzle() error {
	w, h := r.modelSize()
	model, err := grid.NewModelImage(w, h)
	if err != nil {
		return err
	}
	model.SetOrthogonalFastPath(r.params.OrthogonalFastPath)

	switch r.params.Policy {
	case grid.Naive:
		r.stats, err = naiveDrizzleInParallel(model, r.exposures, r.params.NumCores)
		if err != nil {
			return err
		}
		// Every downsampled exposure carries the full flux of the input.
		if r.reference != nil && len(r.exposures) > 0 {
			model.Image().Scale(1 / float64(len(r.exposures)))
		}
	case grid.Weighted:
		r.stats = model.WeightedDrizzle(r.exposures...)
	default:
		return fmt.Errorf("unknown drizzle policy %v", r.params.Policy)
	}
	r.model = model
	return nil
}

func (r *Reconstructor) assembleMatrix() error {
	matrices := assembleMatricesInParallel(r.model, r.exposures, r.params.NumCores)
	stacked, err := sparse.Stack(matrices, r.params.StackAxis)
	if err != nil {
		return err
	}
	r.matrix = stacked
	return nil
}

func (r *Reconstructor) writeOutputs() error {
	if len(r.params.Formats) == 0 {
		return nil
	}
	if err := os.MkdirAll(r.params.OutputDir, 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	for _, format := range r.params.Formats {
		ext := strings.TrimPrefix(strings.ToLower(format), ".")
		sink := imageio.File{Path: filepath.Join(r.params.OutputDir, "drizzled."+ext)}
		if err := grid.WriteImage(r.model.Image(), sink); err != nil {
			return err
		}
		if r.reference != nil {
			ref := imageio.File{Path: filepath.Join(r.params.OutputDir, "one-to-one."+ext)}
			if err := grid.WriteImage(r.reference.Image(), ref); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetModel returns the reconstruction, nil before Process succeeded.
func (r *Reconstructor) GetModel() *grid.ModelImage { return r.model }

// GetMatrix returns the stacked overlap matrix, nil unless AssembleMatrix
// was set.
func (r *Reconstructor) GetMatrix() *sparse.Matrix { return r.matrix }

// Region copies a rectangle of the reconstruction.
func (r *Reconstructor) Region(startX, startY, sizeX, sizeY int) (*grid.Image, error) {
	if r.model == nil {
		return nil, fmt.Errorf("no reconstruction yet")
	}
	return visualization.NewViewer(r.model.Image()).ExtractRegion(startX, startY, sizeX, sizeY)
}

// GetStats returns the overlap counts of the drizzle step.
func (r *Reconstructor) GetStats() grid.Stats { return r.stats }

// GetMetrics returns the comparison with the reference; ok is false unless
// a resampling run was processed.
func (r *Reconstructor) GetMetrics() (m Metrics, ok bool) {
	if r.metrics == nil {
		return Metrics{}, false
	}
	return *r.metrics, true
}

// Exposures describes the loaded exposures.
func (r *Reconstructor) Exposures() []models.Exposure { return r.summaries }

// Result returns the reconstruction as a flat record.
func (r *Reconstructor) Result() models.Reconstruction {
	if r.model == nil {
		return models.Reconstruction{}
	}
	return models.Reconstruction{
		Data:   r.model.Image().Data(),
		Width:  r.model.Width(),
		Height: r.model.Height(),
		Flux:   r.model.Image().MapReduce(observed, add, 0),
	}
}

// MatrixSummary describes the stacked overlap matrix.
func (r *Reconstructor) MatrixSummary() models.MatrixSummary {
	if r.matrix == nil {
		return models.MatrixSummary{}
	}
	rows, cols := r.matrix.Dims()
	return models.MatrixSummary{Rows: rows, Cols: cols, NonZeros: r.matrix.NonZeros(), Sum: r.matrix.Sum()}
}

func observed(v float64) float64 {
	if v == grid.Unobserved {
		return 0
	}
	return v
}

func add(acc, v float64) float64 { return acc + v }

// saveIntermediaryResult saves an intermediary result during the reconstruction process.
// This helps visualize the steps of the algorithm and debug the reconstruction process.
func (r *Reconstructor) saveIntermediaryResult(stage string, data interface{}, index int) error {
	if !r.params.SaveIntermediaryResults {
		return nil
	}

	stageDir := filepath.Join(r.params.IntermediaryDir, stage)
	if err := os.MkdirAll(stageDir, 0755); err != nil {
		return fmt.Errorf("failed to create intermediary directory: %w", err)
	}

	switch v := data.(type) {
	case *grid.Image:
		// A picture for viewing and the exact values next to it
		base := filepath.Join(stageDir, fmt.Sprintf("%03d", index))
		if err := visualization.NewViewer(v).SaveImage(base + ".jpg"); err != nil {
			return err
		}
		return grid.WriteImage(v, imageio.File{Path: base + ".npy"})

	case *sparse.Matrix:
		filename := filepath.Join(stageDir, fmt.Sprintf("%03d.txt", index))
		file, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create matrix file: %w", err)
		}
		defer file.Close()

		rows, cols := v.Dims()
		fmt.Fprintf(file, "# %d %d %d\n", rows, cols, v.NonZeros())
		for _, e := range v.Triplets() {
			fmt.Fprintf(file, "%d %d %.17g\n", e.Row, e.Col, e.Value)
		}
		return nil

	default:
		filename := filepath.Join(stageDir, fmt.Sprintf("%03d.txt", index))
		file, err := os.Create(filename)
		if err != nil {
			return fmt.Errorf("failed to create text file: %w", err)
		}
		defer file.Close()

		fmt.Fprintf(file, "%v", v)
		return nil
	}
}
