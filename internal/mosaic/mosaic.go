// Package mosaic assembles per-tile predictions into the full-extent
// output raster. The buffer starts out filled with a no-data sentinel so
// that any pixel left unwritten by the stitching pass is detectable.
package mosaic

import (
	"fmt"
	"math"

	"github.com/eywalker/deepbedmap/internal/grid"
	"github.com/eywalker/deepbedmap/internal/tiler"
)

// Sentinel marks pixels no tile interior has written yet.
func Sentinel() float32 {
	return float32(math.NaN())
}

// Mosaic is the preallocated full-extent output buffer.
type Mosaic struct {
	shape grid.Shape
	data  []float32
}

// New returns a sentinel-filled mosaic of the given extent.
func New(shape grid.Shape) *Mosaic {
	m := &Mosaic{
		shape: shape,
		data:  make([]float32, shape.Rows*shape.Cols),
	}
	s := Sentinel()
	for i := range m.data {
		m.data[i] = s
	}
	return m
}

func (m *Mosaic) Shape() grid.Shape { return m.shape }

// At returns the pixel at row r, column c.
func (m *Mosaic) At(r, c int) float32 {
	return m.data[r*m.shape.Cols+c]
}

// Data exposes the underlying row-major buffer for export.
func (m *Mosaic) Data() []float32 { return m.data }

// Unwritten scans for sentinel pixels and returns their count together
// with the bounding rectangle that encloses them all.
func (m *Mosaic) Unwritten() (tiler.Window, int) {
	w := tiler.Window{Row0: m.shape.Rows, Col0: m.shape.Cols}
	n := 0
	for r := 0; r < m.shape.Rows; r++ {
		for c := 0; c < m.shape.Cols; c++ {
			if math.IsNaN(float64(m.data[r*m.shape.Cols+c])) {
				n++
				w.Row0 = min(w.Row0, r)
				w.Col0 = min(w.Col0, c)
				w.Row1 = max(w.Row1, r+1)
				w.Col1 = max(w.Col1, c+1)
			}
		}
	}
	if n == 0 {
		return tiler.Window{}, 0
	}
	return w, n
}

// Verify fails if any pixel still holds the sentinel after a run. A hole
// here means the stitching invariant was violated; it must never be
// passed downstream as a legitimate no-data region.
func (m *Mosaic) Verify() error {
	if w, n := m.Unwritten(); n > 0 {
		return fmt.Errorf("mosaic: consistency check failed: %d unwritten pixels in %s", n, w)
	}
	return nil
}

// Stitcher trims the context border from tile predictions and writes the
// interiors into the mosaic. It requires stride == tile size: with equal
// stride the interior rectangles partition the output extent exactly, so
// no pixel is ever written twice or skipped.
type Stitcher struct {
	mosaic   *Mosaic
	tile     grid.Shape
	outScale int
}

// NewStitcher validates the stitching geometry.
func NewStitcher(m *Mosaic, tile, stride grid.Shape, outScale int) (*Stitcher, error) {
	if tile != stride {
		return nil, fmt.Errorf("mosaic: stride %s != tile size %s; unequal stride produces seams or double-counted pixels", stride, tile)
	}
	if !tile.Positive() {
		return nil, fmt.Errorf("mosaic: non-positive tile size %s", tile)
	}
	if outScale < 1 {
		return nil, fmt.Errorf("mosaic: output scale %d < 1", outScale)
	}
	return &Stitcher{mosaic: m, tile: tile, outScale: outScale}, nil
}

// Stitch writes the interior of one tile's prediction into the mosaic.
//
// pred must cover the output rectangle that primary (the tile's clamped
// primary-input window) maps to, i.e. be sized exactly primary.Shape()
// times the output scale. The trim on each side is the distance between
// the prediction's coverage and the tile's target rectangle; for interior
// tiles that is (pad+1) * outScale, while tiles clamped at the global
// boundary carry less context and are trimmed less. The write is
// all-or-nothing: every check runs before the first pixel is touched.
func (s *Stitcher) Stitch(o tiler.Origin, primary tiler.Window, pred *grid.Grid) error {
	if pred.Bands != 1 {
		return fmt.Errorf("mosaic: prediction has %d bands, want 1", pred.Bands)
	}
	want := primary.Shape().Scale(s.outScale)
	if pred.Shape != want {
		return fmt.Errorf("mosaic: prediction shape %s incompatible with window %s at scale %d (want %s)",
			pred.Shape, primary, s.outScale, want)
	}

	// Target rectangle in output pixels, clamped at the far boundary.
	tr0, tc0 := o.Row, o.Col
	tr1 := min(o.Row+s.tile.Rows, s.mosaic.shape.Rows)
	tc1 := min(o.Col+s.tile.Cols, s.mosaic.shape.Cols)
	if tr0 < 0 || tc0 < 0 || tr0 >= tr1 || tc0 >= tc1 {
		return fmt.Errorf("mosaic: tile origin (%d,%d) outside output extent %s", o.Row, o.Col, s.mosaic.shape)
	}

	trimTop := tr0 - primary.Row0*s.outScale
	trimLeft := tc0 - primary.Col0*s.outScale
	if trimTop < 0 || trimLeft < 0 ||
		primary.Row1*s.outScale < tr1 || primary.Col1*s.outScale < tc1 {
		return fmt.Errorf("mosaic: prediction for window %s does not cover target [%d:%d)x[%d:%d)",
			primary, tr0, tr1, tc0, tc1)
	}

	for r := tr0; r < tr1; r++ {
		src := (trimTop+(r-tr0))*pred.Shape.Cols + trimLeft
		dst := r*s.mosaic.shape.Cols + tc0
		copy(s.mosaic.data[dst:dst+tc1-tc0], pred.Data[src:src+tc1-tc0])
	}
	return nil
}
