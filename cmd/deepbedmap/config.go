package main

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/eywalker/deepbedmap/internal/grid"
	"github.com/eywalker/deepbedmap/internal/tiler"
)

// Config holds application configuration
type Config struct {
	DataDir      string
	NoDataValues string

	Scale  int
	Tile   int
	Stride int
	Pad    int

	Rows int // output extent; 0 derives it from the primary raster
	Cols int

	Workers       int
	Slots         int
	Deterministic bool

	Out    string
	Bounds grid.BoundingBox
}

// sourceSpec ties a raster file to its resolution tier. clampZero marks
// quantities that are physically non-negative and get floored on load.
type sourceSpec struct {
	name      string
	scale     int
	bands     int
	clampZero bool
}

// The four input tiers: BEDMAP2 bed elevation (primary), REMA surface
// elevation, MEaSUREs ice velocity (two bands) and snow accumulation.
var sourceSpecs = []sourceSpec{
	{name: "bedmap2", scale: 1, bands: 1},
	{name: "surface", scale: 10, bands: 1, clampZero: true},
	{name: "velocity", scale: 2, bands: 2, clampZero: true},
	{name: "accumulation", scale: 1, bands: 1, clampZero: true},
}

// primarySource is the tier whose grid defines the tiling geometry.
const primarySource = "bedmap2"

// LoadConfig loads configuration from environment variables and command flags
// Flags take precedence over environment variables
func LoadConfig(cmd *cobra.Command) Config {
	cfg := Config{}

	cfg.DataDir = getConfigString(cmd, "data-dir", "DBM_DATA_DIR", "./data")
	cfg.NoDataValues = getConfigString(cmd, "nodata-values", "DBM_NODATA_CSV", "")
	cfg.Scale = getConfigInt(cmd, "scale", "DBM_SCALE", 4)
	cfg.Tile = getConfigInt(cmd, "tile", "DBM_TILE", 1000)
	cfg.Stride = getConfigInt(cmd, "stride", "DBM_STRIDE", 1000)
	cfg.Pad = getConfigInt(cmd, "pad", "DBM_PAD", 18)

	return cfg
}

// LoadInputs reads the four source rasters and builds the source table
// with extents taken from the files themselves.
func (c *Config) LoadInputs() (map[string]*grid.Grid, []tiler.Source, error) {
	store, err := grid.NewStore(grid.StoreConfig{
		DataDir:      c.DataDir,
		NoDataValues: grid.ParseNoData(c.NoDataValues),
	})
	if err != nil {
		return nil, nil, err
	}

	inputs := make(map[string]*grid.Grid, len(sourceSpecs))
	sources := make([]tiler.Source, 0, len(sourceSpecs))
	for _, spec := range sourceSpecs {
		g, _, err := store.Load(spec.name, spec.clampZero)
		if err != nil {
			return nil, nil, err
		}
		inputs[spec.name] = g
		sources = append(sources, tiler.Source{
			Name:   spec.name,
			Scale:  spec.scale,
			Bands:  spec.bands,
			Extent: g.Shape,
		})
	}
	return inputs, sources, nil
}

// Final resolves the output extent: explicit rows/cols if given,
// otherwise the primary raster's extent at output scale.
func (c *Config) Final(primary grid.Shape) grid.Shape {
	final := primary.Scale(c.Scale)
	if c.Rows > 0 {
		final.Rows = c.Rows
	}
	if c.Cols > 0 {
		final.Cols = c.Cols
	}
	return final
}

// getConfigString gets a string value from flag, then env, then default
func getConfigString(cmd *cobra.Command, flagName, envName, defaultValue string) string {
	// Check if flag was explicitly set
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetString(flagName)
		return val
	}

	// Check environment variable
	if v := os.Getenv(envName); v != "" {
		return v
	}

	// Use default
	return defaultValue
}

// getConfigInt gets an int value from flag, then env, then default
func getConfigInt(cmd *cobra.Command, flagName, envName string, defaultValue int) int {
	// Check if flag was explicitly set
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetInt(flagName)
		return val
	}

	// Check environment variable
	if v := os.Getenv(envName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	// Use default
	return defaultValue
}

// getConfigFloat gets a float64 value from flag, then env, then default
func getConfigFloat(cmd *cobra.Command, flagName, envName string, defaultValue float64) float64 {
	// Check if flag was explicitly set
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetFloat64(flagName)
		return val
	}

	// Check environment variable
	if v := os.Getenv(envName); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}

	// Use default
	return defaultValue
}

// getConfigBool gets a bool value from flag, then env, then default
func getConfigBool(cmd *cobra.Command, flagName, envName string, defaultValue bool) bool {
	if cmd.Flags().Changed(flagName) {
		val, _ := cmd.Flags().GetBool(flagName)
		return val
	}

	if v := os.Getenv(envName); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}

	return defaultValue
}
