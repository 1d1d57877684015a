package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/eywalker/deepbedmap/internal/grid"
	"github.com/eywalker/deepbedmap/internal/inference"
	"github.com/eywalker/deepbedmap/internal/pipeline"
	"github.com/eywalker/deepbedmap/internal/tiler"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the tiling plan without running inference",
	Long: `Validate the configuration against the input rasters and print the
resulting tiling plan: tile counts, the first tile's per-source crop
windows and an estimate of per-tile input memory. Useful for sizing
tile/stride/pad before committing accelerator time.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := LoadConfig(cmd)
		cfg.Rows = getConfigInt(cmd, "rows", "DBM_ROWS", 0)
		cfg.Cols = getConfigInt(cmd, "cols", "DBM_COLS", 0)

		inputs, sources, err := cfg.LoadInputs()
		if err != nil {
			log.Fatal(err)
		}

		final := cfg.Final(inputs[primarySource].Shape)
		runner, err := pipeline.New(pipeline.Config{
			Final:    final,
			Tile:     grid.Shape{Rows: cfg.Tile, Cols: cfg.Tile},
			Stride:   grid.Shape{Rows: cfg.Stride, Cols: cfg.Stride},
			Pad:      grid.Shape{Rows: cfg.Pad, Cols: cfg.Pad},
			OutScale: cfg.Scale,
			Primary:  primarySource,
			Sources:  sources,
		}, &inference.Resampler{Primary: primarySource, Scale: cfg.Scale}, inputs)
		if err != nil {
			log.Fatal(err)
		}

		plan := runner.Plan()
		fmt.Printf("output extent: %s (%d tiles, %d x %d)\n", final, plan.Tiles(), plan.NumRow, plan.NumCol)
		fmt.Printf("tile %d, stride %d, pad %d, scale %d\n", cfg.Tile, cfg.Stride, cfg.Pad, cfg.Scale)

		bytes := 0
		for _, src := range sources {
			w, _ := runner.Mapper().SourceWindow(tiler.Origin{}, src)
			n := w.Shape().Rows * w.Shape().Cols * src.Bands * 4
			bytes += n
			fmt.Printf("  %-14s scale %2d  extent %-12s first window %s (%.1f MiB)\n",
				src.Name, src.Scale, src.Extent, w, float64(n)/(1<<20))
		}
		fmt.Printf("per-tile input memory: %.1f MiB\n", float64(bytes)/(1<<20))
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().Int("rows", 0, "Output rows (0 = primary raster rows * scale)")
	infoCmd.Flags().Int("cols", 0, "Output cols (0 = primary raster cols * scale)")
}
