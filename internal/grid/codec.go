package grid

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

// Raster file layout: a 16-byte header (magic "DBMR", then band count,
// rows and columns as little-endian uint32) followed by the channel-first
// float32 samples, little-endian.
var rasterMagic = [4]byte{'D', 'B', 'M', 'R'}

const headerSize = 16

// Decode parses a raw raster payload.
func Decode(raw []byte) (*Grid, error) {
	if len(raw) < headerSize {
		return nil, fmt.Errorf("raster: payload shorter than header: %d", len(raw))
	}
	if !bytes.Equal(raw[:4], rasterMagic[:]) {
		return nil, fmt.Errorf("raster: bad magic %q", raw[:4])
	}
	bands := int(binary.LittleEndian.Uint32(raw[4:8]))
	rows := int(binary.LittleEndian.Uint32(raw[8:12]))
	cols := int(binary.LittleEndian.Uint32(raw[12:16]))
	if bands <= 0 || rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("raster: bad dimensions %dx%dx%d", bands, rows, cols)
	}
	body := raw[headerSize:]
	want := bands * rows * cols * 4
	if len(body) != want {
		return nil, fmt.Errorf("raster: body is %d bytes, want %d for %dx%dx%d", len(body), want, bands, rows, cols)
	}
	g := New(bands, Shape{Rows: rows, Cols: cols})
	if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, g.Data); err != nil {
		return nil, err
	}
	return g, nil
}

// Encode serializes a grid in the raster file layout.
func Encode(g *Grid) []byte {
	buf := bytes.NewBuffer(make([]byte, 0, headerSize+len(g.Data)*4))
	buf.Write(rasterMagic[:])
	binary.Write(buf, binary.LittleEndian, uint32(g.Bands))
	binary.Write(buf, binary.LittleEndian, uint32(g.Shape.Rows))
	binary.Write(buf, binary.LittleEndian, uint32(g.Shape.Cols))
	binary.Write(buf, binary.LittleEndian, g.Data)
	return buf.Bytes()
}

// ReadFile loads a raster from disk.
func ReadFile(path string) (*Grid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteFile stores a raster to disk.
func WriteFile(path string, g *Grid) error {
	return os.WriteFile(path, Encode(g), 0o644)
}
