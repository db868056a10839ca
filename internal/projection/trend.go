package projection

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/sheet"
)

// TrendOptions describes a daily sale trend sheet from a completed period.
type TrendOptions struct {
	TeamColumn   string   // header of the team column, default "Team"
	BrandColumn  string   // header of the brand column, default "Brand"
	RegionColumn string   // header of the region column, default "All Regions"
	ExcludeWords []string // region values containing these are dropped, default ALL, TOTAL
	SurgeDays    int      // trailing day columns forming the surge window, default 5
}

// DefaultTrendOptions returns the layout of the portal's trend export.
func DefaultTrendOptions() TrendOptions {
	return TrendOptions{
		TeamColumn:   "Team",
		BrandColumn:  "Brand",
		RegionColumn: "All Regions",
		ExcludeWords: []string{"ALL", "TOTAL"},
		SurgeDays:    5,
	}
}

var dayLayouts = []string{"2-Jan-06", "02-Jan-06", "2-Jan-2006", "2006-01-02", "01-02-06", "1/2/06", "1/2/2006"}

// excelEpoch is day zero of the 1900 date system as Excel counts it.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// parseDayHeader recognises a day column header. Excel serial numbers are
// accepted because date headers often come through unformatted.
func parseDayHeader(h string) (time.Time, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return time.Time{}, false
	}
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, h); err == nil {
			return t, true
		}
	}
	if serial, err := strconv.ParseFloat(h, 64); err == nil && serial > 20000 && serial < 80000 {
		return excelEpoch.AddDate(0, 0, int(serial)), true
	}
	return time.Time{}, false
}

type dayColumn struct {
	index int
	day   time.Time
}

// ComputeSurgeFactors derives per-team and per-brand multipliers from a
// daily trend sheet: the average daily total of the last SurgeDays columns
// divided by the average daily total of the earlier columns. A group with no
// early-period sales gets 1.0.
func ComputeSurgeFactors(header []string, rows [][]string, opts TrendOptions) (SurgeFactors, error) {
	def := DefaultTrendOptions()
	if opts.TeamColumn == "" {
		opts.TeamColumn = def.TeamColumn
	}
	if opts.BrandColumn == "" {
		opts.BrandColumn = def.BrandColumn
	}
	if opts.RegionColumn == "" {
		opts.RegionColumn = def.RegionColumn
	}
	if opts.ExcludeWords == nil {
		opts.ExcludeWords = def.ExcludeWords
	}
	if opts.SurgeDays <= 0 {
		opts.SurgeDays = def.SurgeDays
	}

	teamCol, brandCol, regionCol := -1, -1, -1
	var days []dayColumn
	for i, h := range header {
		name := strings.ToUpper(strings.TrimSpace(h))
		switch name {
		case strings.ToUpper(opts.TeamColumn):
			teamCol = i
		case strings.ToUpper(opts.BrandColumn):
			brandCol = i
		case strings.ToUpper(opts.RegionColumn):
			regionCol = i
		default:
			if d, ok := parseDayHeader(h); ok {
				days = append(days, dayColumn{index: i, day: d})
			}
		}
	}
	if teamCol < 0 && brandCol < 0 {
		return nil, eris.Errorf("projection: trend sheet has neither %q nor %q column", opts.TeamColumn, opts.BrandColumn)
	}
	if len(days) == 0 {
		return nil, eris.New("projection: trend sheet has no day columns")
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].day.Before(days[j].day) })
	split := max(0, len(days)-opts.SurgeDays)
	normal, surge := days[:split], days[split:]

	type sums struct{ normal, surge float64 }
	byTeam := make(map[string]*sums)
	byBrand := make(map[string]*sums)
	add := func(m map[string]*sums, key string, n, s float64) {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			return
		}
		acc, ok := m[key]
		if !ok {
			acc = &sums{}
			m[key] = acc
		}
		acc.normal += n
		acc.surge += s
	}

	for _, row := range rows {
		if regionCol >= 0 && containsWord(cell(row, regionCol), opts.ExcludeWords) {
			continue
		}
		var n, s float64
		for _, d := range normal {
			n += number(cell(row, d.index))
		}
		for _, d := range surge {
			s += number(cell(row, d.index))
		}
		if teamCol >= 0 {
			add(byTeam, cell(row, teamCol), n, s)
		}
		if brandCol >= 0 {
			add(byBrand, cell(row, brandCol), n, s)
		}
	}

	factor := func(acc *sums) float64 {
		if len(normal) == 0 {
			return DefaultSurge
		}
		normalAvg := acc.normal / float64(len(normal))
		if normalAvg <= 0 {
			return DefaultSurge
		}
		return (acc.surge / float64(len(surge))) / normalAvg
	}

	out := SurgeFactors{
		model.CategoryBrand.FactorKey():   make(map[string]float64, len(byBrand)),
		model.CategoryTeam.FactorKey():    make(map[string]float64, len(byTeam)),
		model.CategoryProduct.FactorKey(): {},
		model.CategoryRegion.FactorKey():  {},
	}
	for k, acc := range byBrand {
		out[model.CategoryBrand.FactorKey()][k] = factor(acc)
	}
	for k, acc := range byTeam {
		out[model.CategoryTeam.FactorKey()][k] = factor(acc)
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func number(s string) float64 {
	v, _ := sheet.ParseNumber(s)
	return v
}

func containsWord(s string, words []string) bool {
	up := strings.ToUpper(s)
	for _, w := range words {
		if strings.Contains(up, strings.ToUpper(w)) {
			return true
		}
	}
	return false
}
