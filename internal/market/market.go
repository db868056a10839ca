// Package market attaches external market context (share, opportunity gap,
// evolution index) to brand aggregates.
package market

import (
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/variance-cli/internal/fetcher"
	"github.com/sells-group/variance-cli/internal/model"
)

// Baselines maps a normalised brand key to its market baseline. It is
// loaded once and never mutated.
type Baselines map[string]model.MarketBaseline

// NormalizeName folds a brand name to its lookup key: NFKC, trimmed,
// upper-cased, inner whitespace collapsed.
func NormalizeName(name string) string {
	s := norm.NFKC.String(name)
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// Lookup finds the baseline for a brand name.
func (b Baselines) Lookup(name string) (model.MarketBaseline, bool) {
	v, ok := b[NormalizeName(name)]
	return v, ok
}

// Load reads the baseline cache. A missing file yields an empty map, so
// every brand reports as unmapped.
func Load(path string) (Baselines, error) {
	raw, found, err := fetcher.ReadJSONFile[map[string]model.MarketBaseline](path)
	if err != nil {
		return nil, eris.Wrap(err, "market: load baselines")
	}
	if !found {
		return Baselines{}, nil
	}
	out := make(Baselines, len(*raw))
	for k, v := range *raw {
		out[NormalizeName(k)] = v
	}
	return out, nil
}

// Save writes the baseline cache.
func Save(path string, b Baselines) error {
	if err := fetcher.WriteJSONFile(path, b); err != nil {
		return eris.Wrap(err, "market: save baselines")
	}
	return nil
}

// Context computes the market metrics of one brand. An unmapped brand gets
// zero metrics and the "N/A" molecule.
func Context(actual float64, base model.MarketBaseline, mapped bool, m model.Metric) model.MarketContext {
	if !mapped {
		return model.MarketContext{Molecule: model.UnmappedMolecule}
	}

	v := base.ForMetric(m)
	ctx := model.MarketContext{
		Mapped:           true,
		Molecule:         base.Molecule,
		Rank:             v.Rank,
		TotalCompetitors: base.TotalCompetitors,
		MarketTotal:      v.MarketTotal,
	}
	if v.MarketTotal > 0 {
		ctx.Share = actual / v.MarketTotal * 100
	}
	ctx.OpportunityGap = max(0, v.MarketTotal-actual)

	var brandGrowth float64
	if v.Baseline > 0 {
		brandGrowth = actual/v.Baseline - 1
	}
	marketGrowth := v.MarketGrowth / 100
	if 1+marketGrowth > 0 {
		ctx.EvolutionIndex = (1 + brandGrowth) / (1 + marketGrowth) * 100
	}
	return ctx
}

// Enrich returns a copy of brand aggregates with Market populated. The input
// slice is not modified.
func Enrich(aggs []model.CategoryAggregate, b Baselines, m model.Metric) []model.CategoryAggregate {
	out := make([]model.CategoryAggregate, len(aggs))
	for i, a := range aggs {
		base, ok := b.Lookup(a.Name)
		mc := Context(a.Actual, base, ok, m)
		a.Market = &mc
		out[i] = a
	}
	return out
}

// Coverage returns how many of aggs have a baseline.
func Coverage(aggs []model.CategoryAggregate, b Baselines) (mapped int) {
	for _, a := range aggs {
		if _, ok := b.Lookup(a.Name); ok {
			mapped++
		}
	}
	return mapped
}
