package grid

import (
	"fmt"
	"math"
)

// Shape is an immutable 2D extent (rows, columns). It is used for sizes,
// never for positions.
type Shape struct {
	Rows int
	Cols int
}

// Scale multiplies both dimensions by an integer resolution ratio.
// All tier arithmetic goes through exact integer scaling so that tiles
// on different grids never desynchronize.
func (s Shape) Scale(f int) Shape {
	return Shape{Rows: s.Rows * f, Cols: s.Cols * f}
}

// Positive reports whether both dimensions are strictly positive.
func (s Shape) Positive() bool {
	return s.Rows > 0 && s.Cols > 0
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// BoundingBox is a geographic extent in projected coordinates,
// following the (left, bottom, right, top) convention.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

// Grid is a dense channel-first raster: Data holds Bands planes of
// Shape.Rows x Shape.Cols float32 values each.
type Grid struct {
	Bands int
	Shape Shape
	Data  []float32
}

// New returns a zero-filled grid.
func New(bands int, shape Shape) *Grid {
	return &Grid{
		Bands: bands,
		Shape: shape,
		Data:  make([]float32, bands*shape.Rows*shape.Cols),
	}
}

// NewFill returns a grid with every sample set to v.
func NewFill(bands int, shape Shape, v float32) *Grid {
	g := New(bands, shape)
	for i := range g.Data {
		g.Data[i] = v
	}
	return g
}

// At returns the sample at band b, row r, column c. No bounds check;
// callers index within the grid's own extent.
func (g *Grid) At(b, r, c int) float32 {
	return g.Data[(b*g.Shape.Rows+r)*g.Shape.Cols+c]
}

// Set writes the sample at band b, row r, column c.
func (g *Grid) Set(b, r, c int, v float32) {
	g.Data[(b*g.Shape.Rows+r)*g.Shape.Cols+c] = v
}

// Crop copies the half-open rectangle [r0,r1) x [c0,c1) of every band
// into a new grid. The rectangle must lie inside the grid.
func (g *Grid) Crop(r0, r1, c0, c1 int) (*Grid, error) {
	if r0 < 0 || c0 < 0 || r1 > g.Shape.Rows || c1 > g.Shape.Cols || r0 > r1 || c0 > c1 {
		return nil, fmt.Errorf("crop [%d:%d)x[%d:%d) outside grid %s", r0, r1, c0, c1, g.Shape)
	}
	out := New(g.Bands, Shape{Rows: r1 - r0, Cols: c1 - c0})
	for b := 0; b < g.Bands; b++ {
		for r := r0; r < r1; r++ {
			src := (b*g.Shape.Rows+r)*g.Shape.Cols + c0
			dst := (b*out.Shape.Rows+(r-r0))*out.Shape.Cols
			copy(out.Data[dst:dst+c1-c0], g.Data[src:src+c1-c0])
		}
	}
	return out, nil
}

// ClampMin raises every sample below floor to floor. Used for inputs
// that are physically non-negative (surface elevation, velocity
// magnitude, accumulation).
func (g *Grid) ClampMin(floor float32) {
	for i, v := range g.Data {
		if v < floor {
			g.Data[i] = floor
		}
	}
}

// ReplaceNoData substitutes every listed no-data value with repl and
// returns how many samples were touched. NaN samples always count as
// no-data.
func (g *Grid) ReplaceNoData(noData []float32, repl float32) int {
	set := make(map[float32]struct{}, len(noData))
	for _, v := range noData {
		set[v] = struct{}{}
	}
	n := 0
	for i, v := range g.Data {
		if _, ok := set[v]; ok || math.IsNaN(float64(v)) {
			g.Data[i] = repl
			n++
		}
	}
	return n
}
