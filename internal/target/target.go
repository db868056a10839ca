// Package target resolves per-row actuals and targets for a metric.
package target

import (
	"strings"

	"github.com/sells-group/variance-cli/internal/model"
)

// DefaultFallbackFactor is the previous-period uplift used when the
// fallback is enabled.
const DefaultFallbackFactor = 1.10

// DefaultRollupMarkers identify group rollup rows in ExtractGroupTargets.
var DefaultRollupMarkers = []string{"SUMMARY", "TOTAL"}

// Options controls target resolution.
type Options struct {
	// PreviousPeriodFallback substitutes previous × FallbackFactor for rows
	// whose target is not positive. Off by default: a zero target means no
	// target was assigned.
	PreviousPeriodFallback bool
	FallbackFactor         float64
}

// Derived holds per-row actuals and targets aligned with the input rows.
type Derived struct {
	Actuals   []float64
	Targets   []float64
	HasTarget []bool // target column > 0; informational only
}

// AnyTarget reports whether at least one row carried a sheet target.
func (d Derived) AnyTarget() bool {
	for _, ok := range d.HasTarget {
		if ok {
			return true
		}
	}
	return false
}

// Totals returns the sums of actuals and targets.
func (d Derived) Totals() (actual, target float64) {
	for i := range d.Actuals {
		actual += d.Actuals[i]
		target += d.Targets[i]
	}
	return actual, target
}

// Derive reads the actual and target columns of m for every row. The target
// column is trusted as-is. HasTarget is based on the sheet value, so a
// fallback target never sets it.
func Derive(rows []model.SourceRow, m model.Metric, opts Options) Derived {
	d := Derived{
		Actuals:   make([]float64, len(rows)),
		Targets:   make([]float64, len(rows)),
		HasTarget: make([]bool, len(rows)),
	}

	factor := opts.FallbackFactor
	if factor == 0 {
		factor = DefaultFallbackFactor
	}

	for i, r := range rows {
		t := r.Target(m)
		d.Actuals[i] = r.Actual(m)
		d.HasTarget[i] = t > 0
		if t <= 0 && opts.PreviousPeriodFallback {
			t = r.Previous(m) * factor
		}
		d.Targets[i] = t
	}
	return d
}

// ExtractGroupTargets sums the target column of the unfiltered rollup rows
// whose label names a group and carries a rollup marker, e.g.
// "DYNAMIC Summary". Every requested group is present in the result; groups
// without a matching rollup row map to 0. Blank group names are skipped since
// they would match every rollup row.
func ExtractGroupTargets(raw []model.SourceRow, groups []string, m model.Metric, markers ...string) model.TeamTargetMap {
	if len(markers) == 0 {
		markers = DefaultRollupMarkers
	}
	upperMarkers := make([]string, len(markers))
	for i, mk := range markers {
		upperMarkers[i] = strings.ToUpper(mk)
	}

	out := make(model.TeamTargetMap, len(groups))
	for _, g := range groups {
		group := strings.ToUpper(strings.TrimSpace(g))
		if group == "" {
			continue
		}
		var sum float64
		for _, r := range raw {
			label := strings.ToUpper(r.Label)
			if !strings.Contains(label, group) || !containsAny(label, upperMarkers) {
				continue
			}
			sum += r.Target(m)
		}
		out[group] = sum
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
