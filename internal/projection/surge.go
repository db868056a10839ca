package projection

import (
	"math"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/fetcher"
	"github.com/sells-group/variance-cli/internal/model"
)

// DefaultSurge is the multiplier used when no factor is known.
const DefaultSurge = 1.0

// Surge factor file names inside the reference directory.
const (
	SurgeFileValue    = "surge_factors_value.json"
	SurgeFileUnit     = "surge_factors_unit.json"
	SurgeFileFallback = "surge_factors.json"
)

// SurgeFactors maps a level key ("Team", "Brand", ...) to upper-cased entity
// names and their late-period multipliers. It is read-only once loaded.
type SurgeFactors map[string]map[string]float64

// Lookup returns the factor for name at category c, or DefaultSurge.
func (f SurgeFactors) Lookup(c model.Category, name string) float64 {
	if f == nil {
		return DefaultSurge
	}
	level, ok := f[c.FactorKey()]
	if !ok {
		return DefaultSurge
	}
	v, ok := level[strings.ToUpper(strings.TrimSpace(name))]
	if !ok || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultSurge
	}
	return v
}

// SurgeFileFor returns the metric-specific file name.
func SurgeFileFor(m model.Metric) string {
	if m == model.MetricUnit {
		return SurgeFileUnit
	}
	return SurgeFileValue
}

// LoadSurgeFactors reads the factors for m from dir, falling back to the
// shared file. When neither exists the result is nil (every lookup 1.0) and
// path is empty.
func LoadSurgeFactors(dir string, m model.Metric) (factors SurgeFactors, path string, err error) {
	for _, name := range []string{SurgeFileFor(m), SurgeFileFallback} {
		p := filepath.Join(dir, name)
		obj, found, err := fetcher.ReadJSONFile[SurgeFactors](p)
		if err != nil {
			return nil, p, eris.Wrap(err, "projection: load surge factors")
		}
		if found {
			return *obj, p, nil
		}
	}
	return nil, "", nil
}

// SaveSurgeFactors writes factors for m into dir.
func SaveSurgeFactors(dir string, m model.Metric, factors SurgeFactors) (string, error) {
	p := filepath.Join(dir, SurgeFileFor(m))
	if err := fetcher.WriteJSONFile(p, factors); err != nil {
		return "", eris.Wrap(err, "projection: save surge factors")
	}
	return p, nil
}
