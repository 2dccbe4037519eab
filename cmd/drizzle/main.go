package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"drizzle/internal/logger"
	"drizzle/pkg/config"
	"drizzle/pkg/reconstruction"
	"drizzle/pkg/visualization"
)

func main() {
	// Parse command line arguments; flags that are set override the config file
	configPath := flag.String("config", "drizzle.yaml", "YAML configuration file")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	numCores := flag.Int("cores", 0, "Number of goroutines to use (default: from config)")
	policy := flag.String("policy", "", "Drizzle policy: naive or weighted (default: from config)")
	outputDir := flag.String("output", "", "Output directory (default: from config)")
	assemble := flag.Bool("matrix", false, "Assemble and stack the overlap matrices")
	resample := flag.Bool("resample", false, "Run the downsample-and-reconstruct experiment")
	resampleInput := flag.String("resample-input", "", "Input picture or npy file for -resample")
	preview := flag.Int("preview", 0, "Write a preview of this width next to the results")
	ascii := flag.Bool("ascii", false, "Print the reconstruction as ASCII art")
	region := flag.String("region", "", "Restrict preview and ASCII output to x,y,width,height of the model")
	saveIntermediary := flag.Bool("save-intermediary", false, "Save intermediary results during processing")
	verbose := flag.Bool("verbose", false, "Log debug output")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["cores"] {
		cfg.Processing.NumCores = *numCores
	}
	if set["policy"] {
		cfg.Processing.Policy = *policy
	}
	if set["output"] {
		cfg.Output.Dir = *outputDir
	}
	if set["matrix"] {
		cfg.Processing.AssembleMatrix = *assemble
	}
	if set["resample"] {
		cfg.Resample.Enabled = *resample
	}
	if set["resample-input"] {
		cfg.Resample.Input = *resampleInput
	}
	if set["save-intermediary"] {
		cfg.Output.SaveIntermediaryResults = *saveIntermediary
	}
	if set["verbose"] {
		cfg.Output.Verbose = *verbose
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	params, err := reconstruction.ParamsFromConfig(cfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("DRIZZLE RECONSTRUCTION")
	fmt.Println("================================")

	reconstructor := reconstruction.NewReconstructor(params)
	startTime := time.Now()
	if err := reconstructor.Process(); err != nil {
		log.Fatalf("Reconstruction failed: %v", err)
	}
	processingTime := time.Since(startTime)

	model := reconstructor.GetModel()
	stats := reconstructor.GetStats()
	result := reconstructor.Result()
	fmt.Printf("\nReconstruction completed in %.2f seconds\n", processingTime.Seconds())
	fmt.Printf("Model: %d x %d, %d exposures, policy %s\n",
		result.Width, result.Height, len(reconstructor.Exposures()), params.Policy)
	fmt.Printf("Pixel pairs inspected: %d, overlapping: %d\n", stats.Inspected, stats.Accepted)
	fmt.Printf("Total observed flux: %.6f\n", result.Flux)

	if params.AssembleMatrix {
		s := reconstructor.MatrixSummary()
		fmt.Printf("Overlap matrix: %d x %d, %d non-zeros, sum %.6f\n", s.Rows, s.Cols, s.NonZeros, s.Sum)
	}

	if metrics, ok := reconstructor.GetMetrics(); ok {
		fmt.Printf("\nResampling metrics:\n")
		fmt.Printf("=======================================\n")
		fmt.Printf("Root Mean Square Error (RMSE): %.6f\n", metrics.RMSE)
		fmt.Printf("Cosine similarity: %.6f\n", metrics.Similarity)
		fmt.Printf("Angle difference: %.6f rad\n", metrics.Angle)
		fmt.Printf("Correlation: %.6f\n", metrics.Correlation)
		fmt.Printf("Flux: reference %.6f, reconstruction %.6f\n", metrics.ReferenceFlux, metrics.ReconstructionFlux)
	}

	shown := model.Image()
	if *region != "" {
		var x, y, w, h int
		if _, err := fmt.Sscanf(*region, "%d,%d,%d,%d", &x, &y, &w, &h); err != nil {
			log.Fatalf("Invalid region %q: %v", *region, err)
		}
		if shown, err = reconstructor.Region(x, y, w, h); err != nil {
			log.Fatalf("Invalid region %q: %v", *region, err)
		}
	}

	viewer := visualization.NewViewer(shown)
	if *preview > 0 {
		height := *preview * shown.Height() / shown.Width()
		if height < 1 {
			height = 1
		}
		path := filepath.Join(cfg.Output.Dir, "preview.png")
		if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
			log.Printf("Warning: Failed to create output directory: %v", err)
		} else if err := viewer.SavePreview(path, *preview, height); err != nil {
			log.Printf("Warning: Failed to save preview: %v", err)
		} else {
			fmt.Printf("Preview saved to: %s\n", path)
		}
	}
	if *ascii {
		fmt.Println()
		fmt.Print(viewer.ASCII(2))
	}

	if cfg.Output.SaveIntermediaryResults {
		fmt.Printf("\nIntermediary results saved to: %s\n", params.IntermediaryDir)
		fmt.Println("- 01_exposures: loaded or downsampled exposures")
		fmt.Println("- 02_model: drizzled model (and weights for the weighted policy)")
		if params.AssembleMatrix {
			fmt.Println("- 03_matrix: stacked overlap matrix as triplets")
		}
	}
}
