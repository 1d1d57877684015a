// Package export persists a completed mosaic. The float32 prediction is
// quantized to 16-bit integers and written as a Deflate-compressed TIFF,
// both lossless, with the geographic bounding box and the quantization
// offset in a JSON sidecar next to the image.
package export

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"golang.org/x/image/tiff"

	"github.com/eywalker/deepbedmap/internal/grid"
	"github.com/eywalker/deepbedmap/internal/mosaic"
)

// quantOffset maps the int16 elevation range onto the unsigned 16-bit
// samples a grayscale TIFF carries. Readers subtract it back out.
const quantOffset = 32768

// Sidecar is the metadata written next to the TIFF.
type Sidecar struct {
	Bounds grid.BoundingBox `json:"bounds"`
	Rows   int              `json:"rows"`
	Cols   int              `json:"cols"`
	Offset int              `json:"offset"` // subtract from samples to get metres
}

// WriteMosaic writes path (the TIFF) and path+".json" (the sidecar).
// The mosaic must have passed its consistency check: a sentinel pixel
// here is an error, not a no-data sample.
func WriteMosaic(path string, m *mosaic.Mosaic, bounds grid.BoundingBox) error {
	shape := m.Shape()
	img := image.NewGray16(image.Rect(0, 0, shape.Cols, shape.Rows))
	for r := 0; r < shape.Rows; r++ {
		for c := 0; c < shape.Cols; c++ {
			v := float64(m.At(r, c))
			if math.IsNaN(v) {
				return fmt.Errorf("export: unwritten pixel at (%d,%d)", r, c)
			}
			q := int(math.Round(v)) + quantOffset
			if q < 0 {
				q = 0
			}
			if q > 65535 {
				q = 65535
			}
			img.SetGray16(c, r, color.Gray16{Y: uint16(q)})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return fmt.Errorf("export: encode %s: %w", path, err)
	}

	side, err := json.MarshalIndent(Sidecar{
		Bounds: bounds,
		Rows:   shape.Rows,
		Cols:   shape.Cols,
		Offset: quantOffset,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path+".json", side, 0o644)
}
