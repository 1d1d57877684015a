// Package inference runs the trained super-resolution model on one tile
// at a time, keeping the per-tile accelerator footprint bounded.
package inference

import (
	"context"
	"fmt"

	"github.com/eywalker/deepbedmap/internal/grid"
)

// Input is one tile's worth of resolution-matched crops, keyed by source
// name. Every crop covers the same geographic area at its own native
// resolution.
type Input map[string]*grid.Grid

// PredictOptions carries per-call model configuration. Deterministic
// requests fixed-algorithm execution so repeated runs on identical input
// produce bit-identical output.
type PredictOptions struct {
	Deterministic bool
}

// Model is the trained network behind the engine. Predict must return a
// single-band prediction of exactly the primary crop's extent times the
// output scale: the engine's border trim relies on the model preserving
// its input footprint.
type Model interface {
	Predict(ctx context.Context, in Input, opts PredictOptions) (*grid.Grid, error)
}

// Config configures an Executor. Device selection and determinism are
// explicit parameters here rather than process-wide side effects.
type Config struct {
	OutScale      int  // output pixels per primary-input pixel
	Slots         int  // accelerator-memory budget slots; 1 means strictly sequential
	Deterministic bool // forwarded to the model on every call
}

// Executor invokes the model once per tile, holding one accelerator
// budget slot for the duration of the call. Slot release is tied to the
// call returning, so at most Slots tiles' working sets are resident at
// once.
type Executor struct {
	model Model
	cfg   Config
	slots chan struct{}
}

// NewExecutor validates the configuration.
func NewExecutor(model Model, cfg Config) (*Executor, error) {
	if model == nil {
		return nil, fmt.Errorf("inference: model is nil")
	}
	if cfg.OutScale < 1 {
		return nil, fmt.Errorf("inference: output scale %d < 1", cfg.OutScale)
	}
	if cfg.Slots < 1 {
		cfg.Slots = 1
	}
	return &Executor{
		model: model,
		cfg:   cfg,
		slots: make(chan struct{}, cfg.Slots),
	}, nil
}

// Run predicts one tile. want is the expected prediction extent (the
// primary window's shape at output scale); a model returning anything
// else is a fatal condition, not retried, since it indicates the model
// and the tiling geometry disagree.
func (e *Executor) Run(ctx context.Context, in Input, want grid.Shape) (*grid.Grid, error) {
	select {
	case e.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.slots }()

	pred, err := e.model.Predict(ctx, in, PredictOptions{Deterministic: e.cfg.Deterministic})
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	if pred.Bands != 1 {
		return nil, fmt.Errorf("inference: model returned %d bands, want 1", pred.Bands)
	}
	if pred.Shape != want {
		return nil, fmt.Errorf("inference: model returned %s, want %s", pred.Shape, want)
	}
	return pred, nil
}
