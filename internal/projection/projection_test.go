package projection

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/target"
)

func period(elapsed int) Period {
	return Period{Elapsed: elapsed, Length: 28, NormalEnd: 23}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name    string
		actual  float64
		elapsed int
		surge   float64
		want    float64
	}{
		// daily 1000, 13 normal + 5 surge days
		{"before boundary", 10000, 10, 1.0, 10000 + 13000 + 5000},
		{"before boundary with surge", 10000, 10, 2.0, 10000 + 13000 + 10000},
		// daily 1000, 0 normal + 3 surge days
		{"after boundary", 25000, 25, 1.5, 25000 + 4500},
		{"exact boundary", 23000, 23, 1.0, 23000 + 5000},
		{"period over", 30000, 30, 1.0, 30000},
		{"zero actual", 0, 10, 1.0, 0},
		{"negative actual", -15000, 22, 1.0, 0},
		{"zero elapsed", 1000, 0, 1.0, 0},
		{"negative elapsed", 1000, -3, 1.0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Project(tt.actual, tt.elapsed, tt.surge, 28), 1e-9)
		})
	}
}

func TestProject_MonotonicInSurge(t *testing.T) {
	for _, elapsed := range []int{1, 10, 23, 24, 27, 28} {
		prev := Project(12345, elapsed, 0, 28)
		for s := 0.1; s <= 5; s += 0.1 {
			cur := Project(12345, elapsed, s, 28)
			assert.GreaterOrEqual(t, cur, prev, "elapsed=%d surge=%.1f", elapsed, s)
			prev = cur
		}
	}
}

func TestProject_NeverNegativeOrNaN(t *testing.T) {
	for _, actual := range []float64{-1e9, -15000, -1, 0, 1, 1e9} {
		for elapsed := -2; elapsed <= 31; elapsed++ {
			got := Project(actual, elapsed, 1.2, 28)
			assert.False(t, math.IsNaN(got))
			assert.GreaterOrEqual(t, got, 0.0)
		}
	}
	assert.Zero(t, Project(math.NaN(), 5, 1, 28))
}

func TestPeriodMethodUsesBoundary(t *testing.T) {
	p := Period{Elapsed: 10, Length: 30, NormalEnd: 20}
	// daily 100, 10 normal days, 10 surge days at 2x
	assert.InDelta(t, 1000+1000+2000, p.Project(1000, 2), 1e-9)
}

func TestExpectedToDate(t *testing.T) {
	assert.InDelta(t, 50000, period(14).ExpectedToDate(100000), 1e-9)
	assert.Zero(t, period(14).ExpectedToDate(0))
	assert.Zero(t, Period{Elapsed: 3}.ExpectedToDate(100))
}

func TestDailyRequired(t *testing.T) {
	p := period(18)
	assert.InDelta(t, 1000, p.DailyRequired(40000, 50000), 1e-9)
	assert.Zero(t, p.DailyRequired(60000, 50000), "never negative when ahead")
	assert.InDelta(t, 65000.0/10, p.DailyRequired(-15000, 50000), 1e-9)

	// past the period end the divisor clamps to 1
	assert.InDelta(t, 500, period(30).DailyRequired(500, 1000), 1e-9)

	for _, a := range []float64{-1e6, 0, 1, 5e4, 1e9} {
		for _, tg := range []float64{-10, 0, 5e4} {
			assert.GreaterOrEqual(t, p.DailyRequired(a, tg), 0.0)
		}
	}
}

func TestGrowthRate(t *testing.T) {
	p := period(14)
	assert.Equal(t, GrowthFromStandstill, p.GrowthRate(0, 1000))
	assert.Equal(t, GrowthFromStandstill, p.GrowthRate(-500, 1000))
	assert.Equal(t, GrowthTargetReached, p.GrowthRate(1000, 1000))
	assert.Equal(t, GrowthTargetReached, p.GrowthRate(2000, 1000))

	// achieved 14000 in 14 days (1000/day); need 14000 over 14 days (1000/day)
	assert.InDelta(t, 0, p.GrowthRate(14000, 28000), 1e-9)
	// need 2000/day against 1000/day achieved
	assert.InDelta(t, 100, p.GrowthRate(14000, 42000), 1e-9)

	g := Period{Elapsed: 0, Length: 28, NormalEnd: 23}.GrowthRate(100, 1000)
	assert.False(t, math.IsNaN(g) || math.IsInf(g, 0))
}

func TestPercent(t *testing.T) {
	assert.InDelta(t, 60, Percent(150000, 250000), 1e-12)
	assert.Zero(t, Percent(100, 0))
	assert.Zero(t, Percent(100, -1))
}

func TestNewPeriodAndHeader(t *testing.T) {
	now := time.Date(2026, time.February, 17, 20, 0, 0, 0, time.UTC)

	p := NewPeriod(now, 28, 23, 0)
	assert.Equal(t, 17, p.Elapsed)
	assert.Equal(t, 11, p.Remaining())
	assert.Equal(t, "Feb 2026 report. Days Elapsed: 17. Days Remaining: 11.", p.Header())

	p = NewPeriod(now, 0, 0, 30)
	assert.Equal(t, 30, p.Elapsed)
	assert.Equal(t, DefaultLength, p.Length)
	assert.Equal(t, DefaultNormalEnd, p.NormalEnd)
	assert.Equal(t, 0, p.Remaining())
}

func TestSurgeLookup(t *testing.T) {
	f := SurgeFactors{
		"Brand": {"ALPHA": 1.4, "BROKEN": -2},
		"Team":  {"DYNAMIC": 0.9},
	}
	assert.InDelta(t, 1.4, f.Lookup(model.CategoryBrand, " alpha "), 1e-12)
	assert.InDelta(t, 0.9, f.Lookup(model.CategoryTeam, "Dynamic"), 1e-12)
	assert.Equal(t, DefaultSurge, f.Lookup(model.CategoryBrand, "OMEGA"))
	assert.Equal(t, DefaultSurge, f.Lookup(model.CategoryBrand, "BROKEN"))
	assert.Equal(t, DefaultSurge, f.Lookup(model.CategoryZone, "NORTH"))
	assert.Equal(t, DefaultSurge, SurgeFactors(nil).Lookup(model.CategoryTeam, "DYNAMIC"))
}

func TestLoadSurgeFactors(t *testing.T) {
	dir := t.TempDir()

	f, path, err := LoadSurgeFactors(dir, model.MetricValue)
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.Empty(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, SurgeFileFallback), []byte(`{"Team":{"DYNAMIC":1.2}}`), 0o644))
	f, path, err = LoadSurgeFactors(dir, model.MetricUnit)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, SurgeFileFallback), path)
	assert.InDelta(t, 1.2, f.Lookup(model.CategoryTeam, "DYNAMIC"), 1e-12)

	saved, err := SaveSurgeFactors(dir, model.MetricUnit, SurgeFactors{"Team": {"DYNAMIC": 1.5}})
	require.NoError(t, err)
	f, path, err = LoadSurgeFactors(dir, model.MetricUnit)
	require.NoError(t, err)
	assert.Equal(t, saved, path)
	assert.InDelta(t, 1.5, f.Lookup(model.CategoryTeam, "DYNAMIC"), 1e-12)

	require.NoError(t, os.WriteFile(filepath.Join(dir, SurgeFileValue), []byte(`{`), 0o644))
	_, _, err = LoadSurgeFactors(dir, model.MetricValue)
	require.Error(t, err)
}

func TestAggregate_GroupsAndSorts(t *testing.T) {
	rows := []model.SourceRow{
		{Team: "DYNAMIC", SaleValue: 14000, TargetValue: 28000},
		{Team: "CONCORD", SaleValue: 1000, TargetValue: 10000},
		{Team: "DYNAMIC", SaleValue: 0, TargetValue: 0},
		{Team: "CONCORD", SaleValue: 4000, TargetValue: 10000},
	}
	d := target.Derive(rows, model.MetricValue, target.Options{})
	p := period(14)

	aggs := Aggregate(rows, d, model.CategoryTeam, p, nil)
	require.Len(t, aggs, 2)

	concord := aggs[0]
	assert.Equal(t, "CONCORD", concord.Name)
	assert.InDelta(t, 5000, concord.Actual, 1e-9)
	assert.InDelta(t, 20000, concord.Target, 1e-9)
	assert.InDelta(t, 10000, concord.ExpectedToDate, 1e-9)
	assert.InDelta(t, -5000, concord.Difference, 1e-9)
	// daily 357.14.., 9 normal + 5 surge days
	wantProj := 5000 + 5000.0/14*14
	assert.InDelta(t, wantProj, concord.Projected, 1e-6)
	assert.InDelta(t, wantProj/20000*100, concord.ProjectionPct, 1e-6)
	assert.InDelta(t, 25, concord.Achievement, 1e-9)
	assert.True(t, concord.HasSoftwareTarget)
	assert.Equal(t, DefaultSurge, concord.SurgeFactor)

	dynamic := aggs[1]
	assert.Equal(t, "DYNAMIC", dynamic.Name)
	assert.InDelta(t, 14000, dynamic.Actual, 1e-9)
	assert.True(t, dynamic.HasSoftwareTarget, "any row with a target marks the group")
	assert.LessOrEqual(t, concord.ProjectionPct, dynamic.ProjectionPct)
}

func TestAggregate_UsesGroupSumsNotRowAverages(t *testing.T) {
	rows := []model.SourceRow{
		{Brand: "ALPHA", SaleValue: 100, TargetValue: 1000},
		{Brand: "ALPHA", SaleValue: 900, TargetValue: 1000},
	}
	d := target.Derive(rows, model.MetricValue, target.Options{})
	aggs := Aggregate(rows, d, model.CategoryBrand, period(14), nil)
	require.Len(t, aggs, 1)
	assert.InDelta(t, period(14).GrowthRate(1000, 2000), aggs[0].GrowthRate, 1e-9)
	assert.InDelta(t, 50, aggs[0].Achievement, 1e-9)
}

func TestAggregate_SurgeFactorApplied(t *testing.T) {
	rows := []model.SourceRow{{Brand: "ALPHA", SaleValue: 10000, TargetValue: 40000}}
	d := target.Derive(rows, model.MetricValue, target.Options{})
	f := SurgeFactors{"Brand": {"ALPHA": 2}}

	aggs := Aggregate(rows, d, model.CategoryBrand, period(10), f)
	require.Len(t, aggs, 1)
	assert.InDelta(t, 2, aggs[0].SurgeFactor, 1e-12)
	assert.InDelta(t, 10000+13000+10000, aggs[0].Projected, 1e-9)
}

func TestAggregate_ZeroTargetScenario(t *testing.T) {
	var rows []model.SourceRow
	for i := 0; i < 5; i++ {
		rows = append(rows, model.SourceRow{Team: "DYNAMIC", SaleValue: 30000, TargetValue: 0, PrevValue: 25000})
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, model.SourceRow{Team: "CONCORD", SaleValue: 0, TargetValue: 50000})
	}

	d := target.Derive(rows, model.MetricValue, target.Options{})
	actual, tgt := d.Totals()
	assert.Equal(t, 150000.0, actual)
	assert.Equal(t, 250000.0, tgt)
	assert.Equal(t, 60.0, Percent(actual, tgt))
	for i := 0; i < 5; i++ {
		assert.Zero(t, d.Targets[i], "no fallback target substituted")
	}

	aggs := Aggregate(rows, d, model.CategoryTeam, period(20), nil)
	for _, a := range aggs {
		assert.False(t, math.IsNaN(a.ProjectionPct))
		assert.False(t, math.IsInf(a.ProjectionPct, 0))
		if a.Name == "DYNAMIC" {
			assert.Zero(t, a.ProjectionPct, "zero target yields 0 projection percent")
			assert.Zero(t, a.Achievement)
			assert.False(t, a.HasSoftwareTarget)
		}
	}
}

func TestAggregate_NegativeActuals(t *testing.T) {
	rows := []model.SourceRow{
		{Brand: "ALPHA", SaleValue: -15000, TargetValue: 20000},
		{Brand: "ALPHA", SaleValue: 5000, TargetValue: 0},
	}
	d := target.Derive(rows, model.MetricValue, target.Options{})
	aggs := Aggregate(rows, d, model.CategoryBrand, period(22), nil)
	require.Len(t, aggs, 1)

	a := aggs[0]
	assert.InDelta(t, -10000, a.Actual, 1e-9)
	assert.Zero(t, a.Projected)
	assert.Equal(t, GrowthFromStandstill, a.GrowthRate)
	assert.InDelta(t, 30000.0/6, a.DailyRequired, 1e-9)
	assert.False(t, math.IsNaN(a.DailyRequired))
}

func TestAggregateAll(t *testing.T) {
	rows := []model.SourceRow{{Team: "T", Brand: "B", Product: "P", Zone: "Z", Region: "R", SaleValue: 1}}
	d := target.Derive(rows, model.MetricValue, target.Options{})
	tables := AggregateAll(rows, d, period(5), nil)
	require.Len(t, tables, len(model.Categories))
	assert.Equal(t, "R", tables[model.CategoryRegion][0].Name)
}

func TestComputeSurgeFactors(t *testing.T) {
	header := []string{"Team", "Brand", "All Regions", "1-Jan-26", "2-Jan-26", "3-Jan-26", "4-Jan-26"}
	rows := [][]string{
		{"DYNAMIC", "ALPHA", "LAHORE", "10", "10", "20", "40"},
		{"DYNAMIC", "BETA", "KARACHI", "5", "5", "5", "5"},
		{"DYNAMIC", "BETA", "All Regions", "999", "999", "999", "999"},
		{"CONCORD", "GAMMA", "Total", "999", "999", "999", "999"},
		{"CONCORD", "DELTA", "MULTAN", "0", "0", "7", "9"},
	}

	f, err := ComputeSurgeFactors(header, rows, TrendOptions{SurgeDays: 2})
	require.NoError(t, err)

	// ALPHA: early avg 10, late avg 30
	assert.InDelta(t, 3.0, f["Brand"]["ALPHA"], 1e-12)
	assert.InDelta(t, 1.0, f["Brand"]["BETA"], 1e-12)
	assert.Equal(t, DefaultSurge, f["Brand"]["DELTA"], "no early sales")
	_, ok := f["Brand"]["GAMMA"]
	assert.False(t, ok, "total rows dropped")

	// DYNAMIC: early (20+10)/2 = 15, late (60+10)/2 = 35
	assert.InDelta(t, 35.0/15.0, f["Team"]["DYNAMIC"], 1e-12)
	assert.Empty(t, f["Product"])
	assert.Empty(t, f["Region"])
}

func TestComputeSurgeFactors_ExcelSerialHeaders(t *testing.T) {
	// 46023 = 2026-01-01
	header := []string{"Brand", "46024", "46023", "46025"}
	rows := [][]string{{"ALPHA", "20", "10", "40"}}

	f, err := ComputeSurgeFactors(header, rows, TrendOptions{SurgeDays: 1})
	require.NoError(t, err)
	// columns sorted by date: 10, 20 early (avg 15); 40 late
	assert.InDelta(t, 40.0/15.0, f["Brand"]["ALPHA"], 1e-12)
}

func TestComputeSurgeFactors_Errors(t *testing.T) {
	_, err := ComputeSurgeFactors([]string{"X", "1-Jan-26"}, nil, TrendOptions{})
	require.Error(t, err)

	_, err = ComputeSurgeFactors([]string{"Team", "Brand"}, nil, TrendOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no day columns")
}
