package market

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/sheet"
)

// BuildOptions describes the layout of the market audit workbook.
type BuildOptions struct {
	NameCol         int
	ManufacturerCol int
	ValueCol        int
	UnitsCol        int
	ValueGrowthCol  int
	UnitsGrowthCol  int
	CompanyMarker   string   // manufacturer substring identifying own brands
	SkipWords       []string // pack/form words that disqualify a molecule header
}

// DefaultBuildOptions matches the monthly audit export.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		NameCol:         0,
		ManufacturerCol: 1,
		ValueCol:        92,
		UnitsCol:        95,
		ValueGrowthCol:  94,
		UnitsGrowthCol:  97,
		CompanyMarker:   "SWISS",
		SkipWords: []string{
			"MG", "ML", "ORAL", "VIAL", "CAPS", "TABS", "ORDINARY", "TOTAL",
			"MARKET", "LIQUID", "INJECTABLE", "SYRUP", "SUSP",
		},
	}
}

type competitor struct {
	name      string
	own       bool
	value     float64
	units     float64
	rankValue int
	rankUnits int
}

type moleculeGroup struct {
	name        string
	value       float64
	units       float64
	growthValue float64
	growthUnits float64
	brands      []*competitor
}

// BuildBaselines walks the audit rows in order. A row without manufacturer
// whose name carries no skip word opens a molecule market; rows with a
// manufacturer are competitors inside the current market. Competitors are
// ranked by value and by units, and the company's own brands become
// baselines keyed by the first word of the brand name.
func BuildBaselines(rows [][]string, opts BuildOptions) Baselines {
	var (
		groups  []*moleculeGroup
		current *moleculeGroup
		index   = make(map[string]int)
	)
	for _, row := range rows {
		name := strings.ToUpper(cellAt(row, opts.NameCol))
		if name == "" || name == "NONE" || name == "NAN" {
			continue
		}
		manu := strings.ToUpper(cellAt(row, opts.ManufacturerCol))
		if manu == "NONE" || manu == "NAN" {
			manu = ""
		}

		if manu == "" {
			if hasAny(name, opts.SkipWords) {
				continue
			}
			current = &moleculeGroup{
				name:        name,
				value:       num(row, opts.ValueCol),
				units:       num(row, opts.UnitsCol),
				growthValue: num(row, opts.ValueGrowthCol),
				growthUnits: num(row, opts.UnitsGrowthCol),
			}
			// A repeated molecule header restarts that molecule's group.
			if i, ok := index[name]; ok {
				groups[i] = current
				continue
			}
			index[name] = len(groups)
			groups = append(groups, current)
			continue
		}

		if current == nil {
			continue
		}
		current.brands = append(current.brands, &competitor{
			name:  name,
			own:   opts.CompanyMarker != "" && strings.Contains(manu, strings.ToUpper(opts.CompanyMarker)),
			value: num(row, opts.ValueCol),
			units: num(row, opts.UnitsCol),
		})
	}

	out := make(Baselines)
	for _, g := range groups {
		if len(g.brands) == 0 {
			continue
		}
		sort.SliceStable(g.brands, func(i, j int) bool { return g.brands[i].value > g.brands[j].value })
		for i, b := range g.brands {
			b.rankValue = i + 1
		}
		sort.SliceStable(g.brands, func(i, j int) bool { return g.brands[i].units > g.brands[j].units })
		for i, b := range g.brands {
			b.rankUnits = i + 1
		}

		for _, b := range g.brands {
			if !b.own {
				continue
			}
			key := NormalizeName(strings.Fields(b.name)[0])
			out[key] = model.MarketBaseline{
				Molecule:          g.name,
				MarketValue:       g.value,
				MarketUnits:       g.units,
				MarketGrowthValue: g.growthValue,
				MarketGrowthUnits: g.growthUnits,
				RankValue:         b.rankValue,
				RankUnits:         b.rankUnits,
				TotalCompetitors:  len(g.brands),
				BaselineValue:     b.value,
				BaselineUnits:     b.units,
			}
		}
	}

	zap.L().Info("market: built baselines",
		zap.Int("rows", len(rows)),
		zap.Int("molecules", len(groups)),
		zap.Int("own_brands", len(out)),
	)
	return out
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func num(row []string, i int) float64 {
	v, _ := sheet.ParseNumber(cellAt(row, i))
	return v
}

func hasAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, strings.ToUpper(w)) {
			return true
		}
	}
	return false
}
