package reconstruction

import (
	"fmt"
	"runtime"

	"drizzle/internal/logger"
	"drizzle/pkg/grid"
	"drizzle/pkg/sparse"
)

func workerCount(numCores, tasks int) int {
	workers := numCores
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > tasks {
		workers = tasks
	}
	return workers
}

// naiveDrizzleInParallel splits the exposures over numCores private models
// and adds the partial models into model in worker order. Exposure i is
// handled by worker i mod workers, so the result does not depend on
// scheduling.
func naiveDrizzleInParallel(model *grid.ModelImage, exposures []*grid.DetectorImage, numCores int) (grid.Stats, error) {
	workers := workerCount(numCores, len(exposures))
	if workers <= 1 {
		return model.NaiveDrizzle(exposures...), nil
	}

	type partialResult struct {
		worker int
		model  *grid.ModelImage
		stats  grid.Stats
		err    error
	}
	resultChan := make(chan partialResult)

	for w := 0; w < workers; w++ {
		go func(worker int) {
			part, err := grid.NewModelImage(model.Width(), model.Height())
			if err != nil {
				resultChan <- partialResult{worker: worker, err: err}
				return
			}
			part.SetOrthogonalFastPath(model.OrthogonalFastPath())

			var batch []*grid.DetectorImage
			for i := worker; i < len(exposures); i += workers {
				batch = append(batch, exposures[i])
			}
			stats := part.NaiveDrizzle(batch...)
			resultChan <- partialResult{worker: worker, model: part, stats: stats}
		}(w)
	}

	// Collect every result before returning so no goroutine is left blocked.
	partials := make([]*grid.ModelImage, workers)
	var stats grid.Stats
	var firstErr error
	for completed := 0; completed < workers; completed++ {
		res := <-resultChan
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		partials[res.worker] = res.model
		stats = stats.Add(res.stats)
		logger.Logger().Debug("drizzle worker finished",
			"worker", res.worker, "completed", completed+1, "workers", workers)
	}
	if firstErr != nil {
		return grid.Stats{}, fmt.Errorf("drizzle worker failed: %w", firstErr)
	}

	for _, part := range partials {
		if err := model.Add(part); err != nil {
			return grid.Stats{}, err
		}
	}
	return stats, nil
}

// assembleMatricesInParallel builds the overlap matrix of every exposure
// against model with at most numCores goroutines. The model is only read.
func assembleMatricesInParallel(model *grid.ModelImage, exposures []*grid.DetectorImage, numCores int) []*sparse.Matrix {
	matrices := make([]*sparse.Matrix, len(exposures))
	workers := workerCount(numCores, len(exposures))
	if workers <= 1 {
		for i, d := range exposures {
			matrices[i] = model.OverlapMatrix(d)
		}
		return matrices
	}

	type matrixResult struct {
		index  int
		matrix *sparse.Matrix
	}
	resultChan := make(chan matrixResult)
	semaphore := make(chan struct{}, workers)

	for i, d := range exposures {
		go func(index int, d *grid.DetectorImage) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			resultChan <- matrixResult{index: index, matrix: model.OverlapMatrix(d)}
		}(i, d)
	}

	for completed := 0; completed < len(exposures); completed++ {
		res := <-resultChan
		matrices[res.index] = res.matrix
	}
	return matrices
}
