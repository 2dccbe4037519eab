// Package config provides configuration loading and management for drizzle.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"drizzle/pkg/grid"
	"drizzle/pkg/sparse"
)

// Exposure describes one detector image: where its samples come from and
// how it is placed in the world.
type Exposure struct {
	// Name identifies the exposure in logs and output files
	Name string `yaml:"name"`

	// Kind selects the sample source: file, raw, constant, weibull or checkerboard
	Kind string `yaml:"kind"`

	// Path is read by the file and raw kinds
	Path string `yaml:"path,omitempty"`

	// Width and Height are the logical size; required for all kinds but file
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`

	// Value is the constant of the constant kind and the square side of the
	// checkerboard kind
	Value float64 `yaml:"value,omitempty"`

	// Seed initializes the weibull kind
	Seed uint64 `yaml:"seed,omitempty"`

	// Placement in world coordinates. A zero physical size is derived from
	// the pixel size, which defaults to one unit; zero pixfrac means 1.
	CenterX        float64 `yaml:"centerX"`
	CenterY        float64 `yaml:"centerY"`
	PhysicalWidth  float64 `yaml:"physicalWidth,omitempty"`
	PhysicalHeight float64 `yaml:"physicalHeight,omitempty"`
	PixelWidth     float64 `yaml:"pixelWidth,omitempty"`
	PixelHeight    float64 `yaml:"pixelHeight,omitempty"`
	Rotation       float64 `yaml:"rotation,omitempty"`
	PixfracX       float64 `yaml:"pixfracX,omitempty"`
	PixfracY       float64 `yaml:"pixfracY,omitempty"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Model is the reconstruction target, one world unit per pixel
	Model struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"model"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many goroutines drizzle and matrix assembly use
		NumCores int `yaml:"numCores"`

		// Policy is naive or weighted
		Policy string `yaml:"policy"`

		// AssembleMatrix builds and stacks the overlap matrices of all exposures
		AssembleMatrix bool `yaml:"assembleMatrix"`

		// StackAxis is vertical or horizontal
		StackAxis string `yaml:"stackAxis"`

		// OrthogonalFastPath uses interval products for axis-aligned exposures
		OrthogonalFastPath bool `yaml:"orthogonalFastPath"`
	} `yaml:"processing"`

	// Exposures to drizzle onto the model
	Exposures []Exposure `yaml:"exposures,omitempty"`

	// Resample configures the downsample-and-reconstruct experiment
	Resample struct {
		Enabled bool `yaml:"enabled"`

		// Input is the high-resolution source; an empty input uses Weibull noise
		Input string `yaml:"input"`

		// ModelWidth and ModelHeight are the size of each low-resolution exposure
		ModelWidth  int `yaml:"modelWidth"`
		ModelHeight int `yaml:"modelHeight"`

		// ShiftsX and ShiftsY are the number of sub-pixel shifts per axis
		ShiftsX int `yaml:"shiftsX"`
		ShiftsY int `yaml:"shiftsY"`

		// Rotations in radians; every rotation gets the full set of shifts
		Rotations []float64 `yaml:"rotations,omitempty"`

		Pixfrac float64 `yaml:"pixfrac"`
		Seed    uint64  `yaml:"seed"`
	} `yaml:"resample"`

	// Output parameters
	Output struct {
		// Dir receives the reconstruction and intermediary results
		Dir string `yaml:"dir"`

		// Formats lists file extensions the model is written as
		Formats []string `yaml:"formats"`

		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Model.Width = 64
	cfg.Model.Height = 64

	// Set default processing parameters
	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default
	cfg.Processing.Policy = grid.Naive.String()
	cfg.Processing.AssembleMatrix = false
	cfg.Processing.StackAxis = sparse.Vertical.String()
	cfg.Processing.OrthogonalFastPath = true

	cfg.Resample.Enabled = false
	cfg.Resample.ModelWidth = 16
	cfg.Resample.ModelHeight = 16
	cfg.Resample.ShiftsX = 4
	cfg.Resample.ShiftsY = 4
	cfg.Resample.Pixfrac = 1
	cfg.Resample.Seed = 1

	// Set default output parameters
	cfg.Output.Dir = "output"
	cfg.Output.Formats = []string{"npy", "png"}
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks sizes, names and placements.
func (cfg *Config) Validate() error {
	if cfg.Model.Width <= 0 || cfg.Model.Height <= 0 {
		return fmt.Errorf("model size must be positive, got %dx%d", cfg.Model.Width, cfg.Model.Height)
	}
	if cfg.Processing.NumCores < 0 {
		return fmt.Errorf("numCores must not be negative, got %d", cfg.Processing.NumCores)
	}
	if _, err := grid.ParsePolicy(cfg.Processing.Policy); err != nil {
		return err
	}
	if _, err := sparse.ParseAxis(cfg.Processing.StackAxis); err != nil {
		return err
	}

	for i, e := range cfg.Exposures {
		if err := e.validate(); err != nil {
			return fmt.Errorf("exposure %d (%s): %w", i, e.Name, err)
		}
	}

	if cfg.Resample.Enabled {
		r := cfg.Resample
		if r.ModelWidth <= 0 || r.ModelHeight <= 0 {
			return fmt.Errorf("resample model size must be positive, got %dx%d", r.ModelWidth, r.ModelHeight)
		}
		if r.ShiftsX <= 0 || r.ShiftsY <= 0 {
			return fmt.Errorf("resample shifts must be positive, got %dx%d", r.ShiftsX, r.ShiftsY)
		}
		if !(r.Pixfrac > 0 && r.Pixfrac <= 1) {
			return fmt.Errorf("resample pixfrac %g outside (0, 1]", r.Pixfrac)
		}
		for _, angle := range r.Rotations {
			if math.IsNaN(angle) || math.IsInf(angle, 0) {
				return fmt.Errorf("resample rotation %g is not finite", angle)
			}
		}
	}
	return nil
}

func (e Exposure) validate() error {
	switch e.Kind {
	case "file":
		if e.Path == "" {
			return fmt.Errorf("file exposure without path")
		}
	case "raw":
		if e.Path == "" {
			return fmt.Errorf("raw exposure without path")
		}
		fallthrough
	case "constant", "weibull", "checkerboard":
		if e.Width <= 0 || e.Height <= 0 {
			return fmt.Errorf("%s exposure needs a positive size, got %dx%d", e.Kind, e.Width, e.Height)
		}
	default:
		return fmt.Errorf("unknown exposure kind %q", e.Kind)
	}
	if e.PhysicalWidth < 0 || e.PhysicalHeight < 0 {
		return fmt.Errorf("negative physical size %gx%g", e.PhysicalWidth, e.PhysicalHeight)
	}
	if e.PixelWidth < 0 || e.PixelHeight < 0 {
		return fmt.Errorf("negative pixel size %gx%g", e.PixelWidth, e.PixelHeight)
	}
	if e.PixfracX < 0 || e.PixfracX > 1 || e.PixfracY < 0 || e.PixfracY > 1 {
		return fmt.Errorf("pixfrac (%g, %g) outside [0, 1]", e.PixfracX, e.PixfracY)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
