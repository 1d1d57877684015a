package tiler

import (
	"fmt"

	"github.com/eywalker/deepbedmap/internal/grid"
)

// Origin is the top-left offset of one tile in output-grid pixels.
type Origin struct {
	Row int
	Col int
}

// Plan enumerates the tile origins covering a full output extent at a
// given stride, in row-major order. Origins always include (0,0) and the
// last row/column of tiles may extend past the extent; the window mapper
// and stitcher clamp at the far edge.
type Plan struct {
	Final  grid.Shape // full output extent
	Stride grid.Shape

	NumRow int // number of tiles vertically
	NumCol int // number of tiles horizontally
}

// NewPlan validates the stride and computes tile counts. A non-positive
// stride is a configuration error, reported before any tile is scheduled.
func NewPlan(final, stride grid.Shape) (Plan, error) {
	if !stride.Positive() {
		return Plan{}, fmt.Errorf("tiler: non-positive stride %s", stride)
	}
	if !final.Positive() {
		return Plan{}, fmt.Errorf("tiler: non-positive output extent %s", final)
	}
	return Plan{
		Final:  final,
		Stride: stride,
		NumRow: ceilDiv(final.Rows, stride.Rows),
		NumCol: ceilDiv(final.Cols, stride.Cols),
	}, nil
}

// Tiles returns the total number of tiles.
func (p Plan) Tiles() int {
	return p.NumRow * p.NumCol
}

// OriginAt returns the origin of tile i in row-major order.
func (p Plan) OriginAt(i int) Origin {
	return Origin{
		Row: (i / p.NumCol) * p.Stride.Rows,
		Col: (i % p.NumCol) * p.Stride.Cols,
	}
}

// Origins materializes all tile origins in row-major order.
func (p Plan) Origins() []Origin {
	out := make([]Origin, 0, p.Tiles())
	for i := 0; i < p.Tiles(); i++ {
		out = append(out, p.OriginAt(i))
	}
	return out
}

// Window is a half-open pixel rectangle in some raster's native
// coordinates: [Row0,Row1) x [Col0,Col1).
type Window struct {
	Row0, Row1 int
	Col0, Col1 int
}

// Shape returns the window's extent.
func (w Window) Shape() grid.Shape {
	return grid.Shape{Rows: w.Row1 - w.Row0, Cols: w.Col1 - w.Col0}
}

// Scale maps the window into a grid f times finer.
func (w Window) Scale(f int) Window {
	return Window{Row0: w.Row0 * f, Row1: w.Row1 * f, Col0: w.Col0 * f, Col1: w.Col1 * f}
}

func (w Window) String() string {
	return fmt.Sprintf("[%d:%d)x[%d:%d)", w.Row0, w.Row1, w.Col0, w.Col1)
}

// Source describes one input resolution tier.
type Source struct {
	Name   string
	Scale  int        // source pixels per primary-input pixel along one axis
	Bands  int        // bands the raster is expected to carry
	Extent grid.Shape // valid extent in source-native pixels
}

// Mapper computes, for one tile, the input window of every source.
//
// All window arithmetic happens in primary-input pixels: the tile's
// output-pixel bounds are divided by OutScale (floor on the near side,
// ceiling on the far side), grown by the extra context the model needs
// (Pad plus one pixel on every side), and clamped to the primary extent.
// The per-source window is that primary window scaled by the source's
// ratio, so the crops of one tile always describe the same geographic
// area regardless of native resolution.
type Mapper struct {
	OutScale int        // output pixels per primary-input pixel
	Tile     grid.Shape // nominal tile size in output pixels
	Pad      grid.Shape // extra context, in primary-input pixels
	Primary  grid.Shape // primary-input extent, in primary-input pixels
}

// NewMapper validates the tiling geometry.
func NewMapper(outScale int, tile, pad, primary grid.Shape) (*Mapper, error) {
	if outScale < 1 {
		return nil, fmt.Errorf("tiler: output scale %d < 1", outScale)
	}
	if !tile.Positive() {
		return nil, fmt.Errorf("tiler: non-positive tile size %s", tile)
	}
	if pad.Rows < 0 || pad.Cols < 0 {
		return nil, fmt.Errorf("tiler: negative padding %s", pad)
	}
	if !primary.Positive() {
		return nil, fmt.Errorf("tiler: non-positive primary extent %s", primary)
	}
	return &Mapper{OutScale: outScale, Tile: tile, Pad: pad, Primary: primary}, nil
}

// PrimaryWindow returns the clamped primary-input window for the tile at
// o, and whether clamping shrank the context below the nominal amount.
func (m *Mapper) PrimaryWindow(o Origin) (Window, bool) {
	r0 := floorDiv(o.Row, m.OutScale) - m.Pad.Rows - 1
	r1 := ceilDiv(o.Row+m.Tile.Rows, m.OutScale) + m.Pad.Rows + 1
	c0 := floorDiv(o.Col, m.OutScale) - m.Pad.Cols - 1
	c1 := ceilDiv(o.Col+m.Tile.Cols, m.OutScale) + m.Pad.Cols + 1

	w := Window{
		Row0: clamp(r0, 0, m.Primary.Rows),
		Row1: clamp(r1, 0, m.Primary.Rows),
		Col0: clamp(c0, 0, m.Primary.Cols),
		Col1: clamp(c1, 0, m.Primary.Cols),
	}
	clamped := w.Row0 != r0 || w.Row1 != r1 || w.Col0 != c0 || w.Col1 != c1
	return w, clamped
}

// SourceWindow returns the window for src in its native pixels.
func (m *Mapper) SourceWindow(o Origin, src Source) (Window, bool) {
	w, clamped := m.PrimaryWindow(o)
	return w.Scale(src.Scale), clamped
}

// ValidateSources checks that every source raster covers at least the
// primary extent at its own resolution, so that per-source windows never
// run past a raster's edge where the primary window would not.
func (m *Mapper) ValidateSources(sources []Source) error {
	for _, src := range sources {
		if src.Scale < 1 {
			return fmt.Errorf("tiler: source %q has scale %d < 1", src.Name, src.Scale)
		}
		want := m.Primary.Scale(src.Scale)
		if src.Extent.Rows < want.Rows || src.Extent.Cols < want.Cols {
			return fmt.Errorf("tiler: source %q extent %s does not cover %s", src.Name, src.Extent, want)
		}
	}
	return nil
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return floorDiv(a+b-1, b)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
