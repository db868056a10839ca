package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/variance-cli/internal/model"
)

func TestDerive_TrustsTargetColumn(t *testing.T) {
	rows := []model.SourceRow{
		{SaleValue: 100, TargetValue: 200, PrevValue: 90, SaleUnits: 1, TargetUnits: 0, PrevUnits: 5},
		{SaleValue: 50, TargetValue: 0, PrevValue: 80},
		{SaleValue: 10, TargetValue: -5},
	}

	d := Derive(rows, model.MetricValue, Options{})
	assert.Equal(t, []float64{100, 50, 10}, d.Actuals)
	assert.Equal(t, []float64{200, 0, -5}, d.Targets)
	assert.Equal(t, []bool{true, false, false}, d.HasTarget)
	assert.True(t, d.AnyTarget())

	u := Derive(rows, model.MetricUnit, Options{})
	assert.Equal(t, []float64{1, 0, 0}, u.Actuals)
	assert.False(t, u.AnyTarget())
}

func TestDerive_PreviousPeriodFallback(t *testing.T) {
	rows := []model.SourceRow{
		{SaleValue: 100, TargetValue: 200, PrevValue: 90},
		{SaleValue: 50, TargetValue: 0, PrevValue: 80},
	}

	d := Derive(rows, model.MetricValue, Options{PreviousPeriodFallback: true})
	assert.InDelta(t, 200, d.Targets[0], 1e-9)
	assert.InDelta(t, 88, d.Targets[1], 1e-9)
	assert.Equal(t, []bool{true, false}, d.HasTarget, "fallback never marks a sheet target")

	d = Derive(rows, model.MetricValue, Options{PreviousPeriodFallback: true, FallbackFactor: 1.5})
	assert.InDelta(t, 120, d.Targets[1], 1e-9)
}

func TestDerive_Totals(t *testing.T) {
	d := Derive([]model.SourceRow{
		{SaleValue: 10, TargetValue: 20},
		{SaleValue: -3, TargetValue: 5},
	}, model.MetricValue, Options{})

	a, tg := d.Totals()
	assert.InDelta(t, 7, a, 1e-9)
	assert.InDelta(t, 25, tg, 1e-9)
}

func TestDerive_Empty(t *testing.T) {
	d := Derive(nil, model.MetricValue, Options{})
	assert.Empty(t, d.Actuals)
	assert.False(t, d.AnyTarget())
}

func TestExtractGroupTargets(t *testing.T) {
	raw := []model.SourceRow{
		{Label: "DYNAMIC", TargetValue: 1000},
		{Label: "Dynamic Summary", TargetValue: 5000, TargetUnits: 50},
		{Label: "DYNAMIC TOTAL", TargetValue: 250},
		{Label: "Concord Summary", TargetValue: 3000},
		{Label: "All", TargetValue: 99999},
		{Label: "Grand Total", TargetValue: 99999},
	}

	got := ExtractGroupTargets(raw, []string{"DYNAMIC", "CONCORD", "PASSIONATE"}, model.MetricValue)
	require.Len(t, got, 3)
	assert.InDelta(t, 5250, got["DYNAMIC"], 1e-9)
	assert.InDelta(t, 3000, got["CONCORD"], 1e-9)
	assert.Zero(t, got["PASSIONATE"])

	units := ExtractGroupTargets(raw, []string{"dynamic"}, model.MetricUnit)
	assert.InDelta(t, 50, units["DYNAMIC"], 1e-9)
}

func TestExtractGroupTargets_SkipsBlankGroup(t *testing.T) {
	raw := []model.SourceRow{
		{Label: "DYNAMIC Summary", TargetValue: 5000},
		{Label: "CONCORD Summary", TargetValue: 3000},
	}

	got := ExtractGroupTargets(raw, []string{"DYNAMIC", "", "  "}, model.MetricValue)
	require.Len(t, got, 1)
	assert.InDelta(t, 5000, got["DYNAMIC"], 1e-9)
	_, ok := got[""]
	assert.False(t, ok)
}

func TestExtractGroupTargets_CustomMarkers(t *testing.T) {
	raw := []model.SourceRow{
		{Label: "ACHIEVERS Subtotal", TargetValue: 10},
		{Label: "ACHIEVERS Summary", TargetValue: 20},
	}
	got := ExtractGroupTargets(raw, []string{"ACHIEVERS"}, model.MetricValue, "subtotal")
	assert.InDelta(t, 10, got["ACHIEVERS"], 1e-9)
}
