// Package pipeline drives the tiled inference run: scheduling tiles,
// mapping per-source windows, invoking the model and stitching the
// predictions into one gap-free mosaic.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/eywalker/deepbedmap/internal/grid"
	"github.com/eywalker/deepbedmap/internal/inference"
	"github.com/eywalker/deepbedmap/internal/mosaic"
	"github.com/eywalker/deepbedmap/internal/tiler"
)

// Config holds the tiling geometry and run parameters. Everything the
// reference design kept in module-level state (model handle, device
// selection) is passed in explicitly.
type Config struct {
	Final    grid.Shape // full output extent, output pixels
	Tile     grid.Shape // nominal tile size, output pixels
	Stride   grid.Shape // must equal Tile
	Pad      grid.Shape // extra model context, primary-input pixels
	OutScale int        // output pixels per primary-input pixel

	Primary string // name of the primary source
	Sources []tiler.Source

	Workers       int  // concurrent tiles; <= 1 runs sequentially
	Slots         int  // accelerator budget slots, passed to the executor
	Deterministic bool // fixed-algorithm model execution

	Logger *log.Logger // nil disables progress output
}

// Runner executes one full tiled prediction.
type Runner struct {
	cfg    Config
	plan   tiler.Plan
	mapper *tiler.Mapper
	exec   *inference.Executor
	inputs map[string]*grid.Grid
}

// New validates the whole configuration up front, before any tile is
// scheduled. Configuration mistakes never surface mid-run.
func New(cfg Config, model inference.Model, inputs map[string]*grid.Grid) (*Runner, error) {
	plan, err := tiler.NewPlan(cfg.Final, cfg.Stride)
	if err != nil {
		return nil, err
	}
	if cfg.Tile != cfg.Stride {
		return nil, fmt.Errorf("pipeline: stride %s != tile size %s", cfg.Stride, cfg.Tile)
	}

	var primary *tiler.Source
	for i := range cfg.Sources {
		if cfg.Sources[i].Name == cfg.Primary {
			primary = &cfg.Sources[i]
		}
	}
	if primary == nil {
		return nil, fmt.Errorf("pipeline: primary source %q not in source table", cfg.Primary)
	}
	if primary.Scale != 1 {
		return nil, fmt.Errorf("pipeline: primary source %q has scale %d, want 1", primary.Name, primary.Scale)
	}
	if primary.Extent.Rows*cfg.OutScale < cfg.Final.Rows || primary.Extent.Cols*cfg.OutScale < cfg.Final.Cols {
		return nil, fmt.Errorf("pipeline: primary extent %s at scale %d does not cover output %s",
			primary.Extent, cfg.OutScale, cfg.Final)
	}

	mapper, err := tiler.NewMapper(cfg.OutScale, cfg.Tile, cfg.Pad, primary.Extent)
	if err != nil {
		return nil, err
	}
	if err := mapper.ValidateSources(cfg.Sources); err != nil {
		return nil, err
	}

	for _, src := range cfg.Sources {
		g, ok := inputs[src.Name]
		if !ok {
			return nil, fmt.Errorf("pipeline: no input raster for source %q", src.Name)
		}
		if g.Shape != src.Extent {
			return nil, fmt.Errorf("pipeline: raster %q is %s, source table says %s", src.Name, g.Shape, src.Extent)
		}
		if src.Bands > 0 && g.Bands != src.Bands {
			return nil, fmt.Errorf("pipeline: raster %q has %d bands, want %d", src.Name, g.Bands, src.Bands)
		}
	}

	exec, err := inference.NewExecutor(model, inference.Config{
		OutScale:      cfg.OutScale,
		Slots:         cfg.Slots,
		Deterministic: cfg.Deterministic,
	})
	if err != nil {
		return nil, err
	}

	return &Runner{cfg: cfg, plan: plan, mapper: mapper, exec: exec, inputs: inputs}, nil
}

// Plan returns the validated tiling plan.
func (r *Runner) Plan() tiler.Plan { return r.plan }

// Mapper returns the validated window mapper.
func (r *Runner) Mapper() *tiler.Mapper { return r.mapper }

// Run processes every tile and returns the completed mosaic. Any tile
// failure aborts the whole run; a partially valid mosaic is never
// returned. After the last tile the sentinel consistency check runs.
func (r *Runner) Run(ctx context.Context) (*mosaic.Mosaic, error) {
	m := mosaic.New(r.cfg.Final)
	st, err := mosaic.NewStitcher(m, r.cfg.Tile, r.cfg.Stride, r.cfg.OutScale)
	if err != nil {
		return nil, err
	}

	n := r.plan.Tiles()
	if r.cfg.Workers <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := r.tile(ctx, i, st); err != nil {
				return nil, err
			}
		}
	} else if err := r.runParallel(ctx, st); err != nil {
		return nil, err
	}

	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// runParallel fans tiles out over a bounded worker pool. Mosaic writes
// need no lock: with stride == tile size the target rectangles are
// disjoint. The first failure cancels the run context so in-flight tiles
// stop spending accelerator budget on a doomed run.
func (r *Runner) runParallel(ctx context.Context, st *mosaic.Stitcher) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	idx := make(chan int)
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				if ctx.Err() != nil {
					continue
				}
				if err := r.tile(ctx, i, st); err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

	n := r.plan.Tiles()
feed:
	for i := 0; i < n; i++ {
		select {
		case idx <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(idx)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

// tile runs one tile through windows-computed, inferred, trimmed and
// stitched. Any failed stage aborts with the tile identified in the
// error; a skipped tile would leave a sentinel hole downstream consumers
// cannot tell from legitimate no-data.
func (r *Runner) tile(ctx context.Context, i int, st *mosaic.Stitcher) error {
	o := r.plan.OriginAt(i)
	primary, clamped := r.mapper.PrimaryWindow(o)
	if clamped {
		r.logf("tile %d/%d origin=(%d,%d): window %s clamped at raster boundary, reduced context", i+1, r.plan.Tiles(), o.Row, o.Col, primary)
	}

	in := make(inference.Input, len(r.cfg.Sources))
	for _, src := range r.cfg.Sources {
		w, _ := r.mapper.SourceWindow(o, src)
		crop, err := r.inputs[src.Name].Crop(w.Row0, w.Row1, w.Col0, w.Col1)
		if err != nil {
			return fmt.Errorf("tile (%d,%d) source %q: %w", o.Row, o.Col, src.Name, err)
		}
		in[src.Name] = crop
	}

	pred, err := r.exec.Run(ctx, in, primary.Shape().Scale(r.cfg.OutScale))
	if err != nil {
		return fmt.Errorf("tile (%d,%d): %w", o.Row, o.Col, err)
	}
	if err := st.Stitch(o, primary, pred); err != nil {
		return fmt.Errorf("tile (%d,%d): %w", o.Row, o.Col, err)
	}

	r.logf("tile %d/%d origin=(%d,%d) window=%s done", i+1, r.plan.Tiles(), o.Row, o.Col, primary)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.cfg.Logger != nil {
		r.cfg.Logger.Printf(format, args...)
	}
}
