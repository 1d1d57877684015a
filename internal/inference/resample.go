package inference

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/eywalker/deepbedmap/internal/grid"
)

// Resampler upsamples the primary input with Catmull-Rom interpolation.
// It is the stand-in used when no trained model is configured: the same
// bicubic baseline the learned product is compared against. Values pass
// through a 16-bit quantization on the way into the scaler, so the
// result is a smooth approximation rather than a learned prediction.
// It is deterministic regardless of PredictOptions.
type Resampler struct {
	Primary string // name of the primary source in the input map
	Scale   int    // output pixels per primary-input pixel
}

// Predict implements Model.
func (rs *Resampler) Predict(_ context.Context, in Input, _ PredictOptions) (*grid.Grid, error) {
	crop, ok := in[rs.Primary]
	if !ok {
		return nil, fmt.Errorf("resample: input has no %q crop", rs.Primary)
	}
	if crop.Bands < 1 {
		return nil, fmt.Errorf("resample: %q crop has no bands", rs.Primary)
	}
	if rs.Scale < 1 {
		return nil, fmt.Errorf("resample: scale %d < 1", rs.Scale)
	}

	rows, cols := crop.Shape.Rows, crop.Shape.Cols
	if rows < 1 || cols < 1 {
		return nil, fmt.Errorf("resample: empty %q crop", rs.Primary)
	}
	lo, hi := crop.At(0, 0, 0), crop.At(0, 0, 0)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := crop.At(0, r, c)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}

	out := grid.New(1, crop.Shape.Scale(rs.Scale))
	if hi == lo {
		for i := range out.Data {
			out.Data[i] = lo
		}
		return out, nil
	}

	src := image.NewGray16(image.Rect(0, 0, cols, rows))
	span := float64(hi - lo)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			u := uint16(float64(crop.At(0, r, c)-lo)/span*65535 + 0.5)
			src.SetGray16(c, r, color.Gray16{Y: u})
		}
	}

	dst := image.NewGray16(image.Rect(0, 0, cols*rs.Scale, rows*rs.Scale))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	for r := 0; r < out.Shape.Rows; r++ {
		for c := 0; c < out.Shape.Cols; c++ {
			u := dst.Gray16At(c, r).Y
			out.Set(0, r, c, lo+float32(float64(u)/65535*span))
		}
	}
	return out, nil
}
