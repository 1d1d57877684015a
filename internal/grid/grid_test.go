package grid

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShapeScale(t *testing.T) {
	s := Shape{Rows: 25, Cols: 30}
	require.Equal(t, Shape{Rows: 250, Cols: 300}, s.Scale(10))
	require.True(t, s.Positive())
	require.False(t, Shape{Rows: 0, Cols: 5}.Positive())
	require.Equal(t, "25x30", s.String())
}

func TestCrop(t *testing.T) {
	g := New(2, Shape{Rows: 4, Cols: 5})
	for b := 0; b < 2; b++ {
		for r := 0; r < 4; r++ {
			for c := 0; c < 5; c++ {
				g.Set(b, r, c, float32(b*100+r*10+c))
			}
		}
	}

	sub, err := g.Crop(1, 3, 2, 5)
	require.NoError(t, err)
	require.Equal(t, Shape{Rows: 2, Cols: 3}, sub.Shape)
	require.Equal(t, 2, sub.Bands)
	require.Equal(t, float32(12), sub.At(0, 0, 0))
	require.Equal(t, float32(124), sub.At(1, 1, 2))

	_, err = g.Crop(0, 5, 0, 5)
	require.ErrorContains(t, err, "outside grid")
	_, err = g.Crop(-1, 2, 0, 2)
	require.ErrorContains(t, err, "outside grid")
}

func TestClampMin(t *testing.T) {
	g := New(1, Shape{Rows: 1, Cols: 4})
	copy(g.Data, []float32{-5, 0, 3, -0.5})
	g.ClampMin(0)
	require.Equal(t, []float32{0, 0, 3, 0}, g.Data)
}

func TestReplaceNoData(t *testing.T) {
	g := New(1, Shape{Rows: 1, Cols: 5})
	copy(g.Data, []float32{-32768, 1, float32(math.NaN()), 2, -32768})
	n := g.ReplaceNoData([]float32{-32768}, 0)
	require.Equal(t, 3, n)
	require.Equal(t, []float32{0, 1, 0, 2, 0}, g.Data)
}

func TestCodecRoundTrip(t *testing.T) {
	g := New(2, Shape{Rows: 3, Cols: 4})
	for i := range g.Data {
		g.Data[i] = float32(i) * 1.5
	}

	got, err := Decode(Encode(g))
	require.NoError(t, err)
	require.Equal(t, g, got)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		err  string
	}{
		{"short", []byte{'D', 'B'}, "shorter than header"},
		{"bad magic", make([]byte, 32), "bad magic"},
		{"truncated body", Encode(New(1, Shape{Rows: 2, Cols: 2}))[:headerSize+8], "body is"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			require.ErrorContains(t, err, tt.err)
		})
	}
}

func TestStoreLoad(t *testing.T) {
	dir := t.TempDir()
	g := New(1, Shape{Rows: 2, Cols: 3})
	copy(g.Data, []float32{-32768, -2, 5, 1, -32768, 3})
	require.NoError(t, WriteFile(filepath.Join(dir, "surface.dbm"), g))

	store, err := NewStore(StoreConfig{DataDir: dir, NoDataValues: []float32{-32768}})
	require.NoError(t, err)

	loaded, replaced, err := store.Load("surface", true)
	require.NoError(t, err)
	require.Equal(t, 2, replaced)
	// no-data replaced with 0, negatives floored at 0
	require.Equal(t, []float32{0, 0, 5, 1, 0, 3}, loaded.Data)

	_, _, err = store.Load("missing", false)
	require.Error(t, err)

	_, err = NewStore(StoreConfig{})
	require.ErrorContains(t, err, "DataDir required")
}

func TestParseNoData(t *testing.T) {
	require.Nil(t, ParseNoData(""))
	require.Equal(t, []float32{-32768}, ParseNoData("-32768"))
	require.Equal(t, []float32{-32768, 3.4028235e+38}, ParseNoData(" -32768, 3.4028235e+38,"))
}
