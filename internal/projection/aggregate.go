package projection

import (
	"sort"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/target"
)

// Aggregate groups rows by category value, sums actual and target, and
// applies the pace and projection formulas at group level. derived must be
// aligned with rows. The result is sorted by ProjectionPct ascending, then
// by name.
func Aggregate(rows []model.SourceRow, derived target.Derived, c model.Category, p Period, factors SurgeFactors) []model.CategoryAggregate {
	type acc struct {
		actual, target float64
		hasTarget      bool
	}

	groups := make(map[string]*acc)
	var order []string
	for i, r := range rows {
		name := r.Category(c)
		g, ok := groups[name]
		if !ok {
			g = &acc{}
			groups[name] = g
			order = append(order, name)
		}
		g.actual += derived.Actuals[i]
		g.target += derived.Targets[i]
		g.hasTarget = g.hasTarget || derived.HasTarget[i]
	}

	out := make([]model.CategoryAggregate, 0, len(order))
	for _, name := range order {
		g := groups[name]
		out = append(out, Compute(c, name, g.actual, g.target, g.hasTarget, p, factors.Lookup(c, name)))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProjectionPct != out[j].ProjectionPct {
			return out[i].ProjectionPct < out[j].ProjectionPct
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Compute fills every derived field of one aggregate from its summed actual
// and target.
func Compute(c model.Category, name string, actual, tgt float64, hasTarget bool, p Period, surge float64) model.CategoryAggregate {
	expected := p.ExpectedToDate(tgt)
	projected := p.Project(actual, surge)
	return model.CategoryAggregate{
		Category:          c,
		Name:              name,
		Actual:            actual,
		Target:            tgt,
		ExpectedToDate:    expected,
		Difference:        actual - expected,
		Projected:         projected,
		ProjectionPct:     Percent(projected, tgt),
		DailyRequired:     p.DailyRequired(actual, tgt),
		GrowthRate:        p.GrowthRate(actual, tgt),
		Achievement:       Percent(actual, tgt),
		SurgeFactor:       surge,
		HasSoftwareTarget: hasTarget,
	}
}

// AggregateAll builds the table of every category.
func AggregateAll(rows []model.SourceRow, derived target.Derived, p Period, factors SurgeFactors) map[model.Category][]model.CategoryAggregate {
	tables := make(map[model.Category][]model.CategoryAggregate, len(model.Categories))
	for _, c := range model.Categories {
		tables[c] = Aggregate(rows, derived, c, p, factors)
	}
	return tables
}
