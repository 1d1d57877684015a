package grid

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// StoreConfig configures a raster store.
type StoreConfig struct {
	DataDir      string
	NoDataValues []float32 // substituted with 0 on load
}

// Store loads co-registered input rasters from a directory. One file per
// source, named <source>.dbm. The data-preparation step that produced the
// files is responsible for re-gridding and gap-filling; the store only
// applies no-data substitution and the physical floor clamp.
type Store struct {
	cfg StoreConfig
}

func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("DataDir required")
	}
	return &Store{cfg: cfg}, nil
}

func (s *Store) Config() StoreConfig { return s.cfg }

func (s *Store) path(name string) string {
	return filepath.Join(s.cfg.DataDir, name+".dbm")
}

// Load reads one source raster. When clampZero is set, negative samples
// are raised to 0 after no-data substitution.
func (s *Store) Load(name string, clampZero bool) (*Grid, int, error) {
	g, err := ReadFile(s.path(name))
	if err != nil {
		return nil, 0, err
	}
	replaced := g.ReplaceNoData(s.cfg.NoDataValues, 0)
	if clampZero {
		g.ClampMin(0)
	}
	return g, replaced, nil
}

// ParseNoData parses a comma-separated list of no-data values,
// e.g. "-32768,3.4028235e+38". Empty entries are skipped.
func ParseNoData(csv string) []float32 {
	if csv == "" {
		return nil
	}
	var out []float32
	for _, p := range strings.Split(csv, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if f, err := strconv.ParseFloat(p, 32); err == nil {
			out = append(out, float32(f))
		}
	}
	return out
}
