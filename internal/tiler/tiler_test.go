package tiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eywalker/deepbedmap/internal/grid"
)

func TestPlanOrigins(t *testing.T) {
	plan, err := NewPlan(grid.Shape{Rows: 1000, Cols: 1000}, grid.Shape{Rows: 400, Cols: 400})
	require.NoError(t, err)
	require.Equal(t, 3, plan.NumRow)
	require.Equal(t, 3, plan.NumCol)

	want := []Origin{
		{0, 0}, {0, 400}, {0, 800},
		{400, 0}, {400, 400}, {400, 800},
		{800, 0}, {800, 400}, {800, 800},
	}
	require.Equal(t, want, plan.Origins())

	// Restartable: a second enumeration yields the same sequence.
	require.Equal(t, want, plan.Origins())
}

func TestPlanExactMultiple(t *testing.T) {
	plan, err := NewPlan(grid.Shape{Rows: 800, Cols: 1200}, grid.Shape{Rows: 400, Cols: 400})
	require.NoError(t, err)
	require.Equal(t, 2, plan.NumRow)
	require.Equal(t, 3, plan.NumCol)
	require.Equal(t, Origin{400, 800}, plan.OriginAt(plan.Tiles()-1))
}

func TestPlanBadStride(t *testing.T) {
	final := grid.Shape{Rows: 1000, Cols: 1000}
	for _, stride := range []grid.Shape{
		{Rows: 0, Cols: 400},
		{Rows: 400, Cols: 0},
		{Rows: -1, Cols: 400},
	} {
		_, err := NewPlan(final, stride)
		require.Error(t, err, "stride %v", stride)
	}
}

func TestSourceWindowSpan(t *testing.T) {
	// A ratio-10 source at origin (400,400) with a 100-pixel tile and
	// 18 pixels of padding must span (100/4 + 2*18 + 2) * 10 = 630
	// source pixels per axis, counting the one extra context pixel.
	m, err := NewMapper(4, grid.Shape{Rows: 100, Cols: 100}, grid.Shape{Rows: 18, Cols: 18}, grid.Shape{Rows: 1000, Cols: 1000})
	require.NoError(t, err)

	src := Source{Name: "surface", Scale: 10, Extent: grid.Shape{Rows: 10000, Cols: 10000}}
	w, clamped := m.SourceWindow(Origin{Row: 400, Col: 400}, src)
	require.False(t, clamped)
	require.Equal(t, 630, w.Row1-w.Row0)
	require.Equal(t, 630, w.Col1-w.Col0)
	require.Equal(t, Window{Row0: 810, Row1: 1440, Col0: 810, Col1: 1440}, w)
}

func TestPrimaryWindowClamping(t *testing.T) {
	primary := grid.Shape{Rows: 250, Cols: 250}
	m, err := NewMapper(4, grid.Shape{Rows: 400, Cols: 400}, grid.Shape{Rows: 2, Cols: 2}, primary)
	require.NoError(t, err)

	tests := []struct {
		name    string
		origin  Origin
		want    Window
		clamped bool
	}{
		{"first tile", Origin{0, 0}, Window{0, 103, 0, 103}, true},
		{"interior", Origin{400, 400}, Window{97, 203, 97, 203}, false},
		{"far corner", Origin{800, 800}, Window{197, 250, 197, 250}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, clamped := m.PrimaryWindow(tt.origin)
			require.Equal(t, tt.want, w)
			require.Equal(t, tt.clamped, clamped)
		})
	}
}

func TestWindowNeverNegative(t *testing.T) {
	// Property sweep: clamped windows always satisfy
	// 0 <= start <= end <= extent, for every source tier.
	primary := grid.Shape{Rows: 37, Cols: 53}
	sources := []Source{
		{Name: "a", Scale: 1, Extent: primary},
		{Name: "b", Scale: 2, Extent: primary.Scale(2)},
		{Name: "c", Scale: 10, Extent: primary.Scale(10)},
	}
	for _, pad := range []int{0, 1, 5, 30} {
		m, err := NewMapper(4, grid.Shape{Rows: 16, Cols: 16}, grid.Shape{Rows: pad, Cols: pad}, primary)
		require.NoError(t, err)
		require.NoError(t, m.ValidateSources(sources))

		plan, err := NewPlan(primary.Scale(4), grid.Shape{Rows: 16, Cols: 16})
		require.NoError(t, err)
		for _, o := range plan.Origins() {
			for _, src := range sources {
				w, _ := m.SourceWindow(o, src)
				require.GreaterOrEqual(t, w.Row0, 0)
				require.LessOrEqual(t, w.Row0, w.Row1)
				require.LessOrEqual(t, w.Row1, src.Extent.Rows)
				require.GreaterOrEqual(t, w.Col0, 0)
				require.LessOrEqual(t, w.Col0, w.Col1)
				require.LessOrEqual(t, w.Col1, src.Extent.Cols)
			}
		}
	}
}

func TestValidateSources(t *testing.T) {
	m, err := NewMapper(4, grid.Shape{Rows: 16, Cols: 16}, grid.Shape{Rows: 1, Cols: 1}, grid.Shape{Rows: 100, Cols: 100})
	require.NoError(t, err)

	err = m.ValidateSources([]Source{
		{Name: "short", Scale: 2, Extent: grid.Shape{Rows: 199, Cols: 200}},
	})
	require.ErrorContains(t, err, "does not cover")

	err = m.ValidateSources([]Source{
		{Name: "zero", Scale: 0, Extent: grid.Shape{Rows: 100, Cols: 100}},
	})
	require.ErrorContains(t, err, "scale")
}
