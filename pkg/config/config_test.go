package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "naive", cfg.Processing.Policy)
	assert.Equal(t, "vertical", cfg.Processing.StackAxis)
	assert.Positive(t, cfg.Processing.NumCores)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Model, cfg.Model)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drizzle.yaml")
	yaml := `
model:
  width: 8
  height: 6
processing:
  policy: weighted
  numCores: 2
exposures:
  - name: first
    kind: constant
    width: 2
    height: 2
    value: 1
    centerX: 4
    centerY: 3
    rotation: 0.5
    pixfracX: 0.7
    pixelWidth: 1.5
resample:
  rotations: [0, 1.5707963267948966]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.Model.Width)
	assert.Equal(t, "weighted", cfg.Processing.Policy)
	assert.Equal(t, 2, cfg.Processing.NumCores)
	// Unset keys keep their defaults.
	assert.Equal(t, "vertical", cfg.Processing.StackAxis)
	require.Len(t, cfg.Exposures, 1)
	assert.Equal(t, 0.7, cfg.Exposures[0].PixfracX)
	assert.Equal(t, 4.0, cfg.Exposures[0].CenterX)
	assert.Equal(t, 1.5, cfg.Exposures[0].PixelWidth)
	assert.Equal(t, []float64{0, math.Pi / 2}, cfg.Resample.Rotations)
	assert.Equal(t, 4, cfg.Resample.ShiftsX)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [1, 2"), 0644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "parsing config")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "drizzle.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"model size":     func(c *Config) { c.Model.Width = 0 },
		"policy":         func(c *Config) { c.Processing.Policy = "bicubic" },
		"axis":           func(c *Config) { c.Processing.StackAxis = "diagonal" },
		"numCores":       func(c *Config) { c.Processing.NumCores = -1 },
		"exposure kind":  func(c *Config) { c.Exposures = []Exposure{{Kind: "camera"}} },
		"file path":      func(c *Config) { c.Exposures = []Exposure{{Kind: "file"}} },
		"raw size":       func(c *Config) { c.Exposures = []Exposure{{Kind: "raw", Path: "x.bin"}} },
		"pixfrac":        func(c *Config) { c.Exposures = []Exposure{{Kind: "constant", Width: 1, Height: 1, PixfracY: 2}} },
		"resample shift": func(c *Config) { c.Resample.Enabled = true; c.Resample.ShiftsX = 0 },
		"resample frac":  func(c *Config) { c.Resample.Enabled = true; c.Resample.Pixfrac = 0 },
		"resample angle": func(c *Config) { c.Resample.Enabled = true; c.Resample.Rotations = []float64{math.NaN()} },
		"pixel size":     func(c *Config) { c.Exposures = []Exposure{{Kind: "constant", Width: 1, Height: 1, PixelWidth: -1}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
