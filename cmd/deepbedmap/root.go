/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deepbedmap",
	Short: "Tiled super-resolution inference over geospatial rasters",
	Long: `Deepbedmap predicts a high-resolution bed elevation raster from several
co-registered inputs of differing native resolution, using a fixed-scale
image-to-image model applied tile by tile.

The engine splits the output extent into tiles, crops a matching window
from every input raster (with extra context for the model's receptive
field), runs inference per tile, trims the context border and stitches
the interiors into one gap-free mosaic.

Configuration can be set via environment variables or command-line flags.
Flags take precedence over environment variables.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()

	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Directory with the input rasters (<source>.dbm)")
	rootCmd.PersistentFlags().Int("scale", 4, "Output pixels per primary-input pixel")
	rootCmd.PersistentFlags().Int("tile", 1000, "Tile size in output pixels")
	rootCmd.PersistentFlags().Int("stride", 1000, "Tile stride in output pixels (must equal tile size)")
	rootCmd.PersistentFlags().Int("pad", 18, "Extra model context per side, in primary-input pixels")
	rootCmd.PersistentFlags().String("nodata-values", "", "Comma-separated list of no-data values (e.g., '-32768,3.4028235e+38')")
}
