package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"value", MetricValue, false},
		{"financial", MetricValue, false},
		{" Unit ", MetricUnit, false},
		{"units", MetricUnit, false},
		{"volume", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseMetric(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSourceRow_MetricAccessors(t *testing.T) {
	t.Parallel()

	r := SourceRow{
		SaleUnits: 10, SaleValue: 1000,
		PrevUnits: 9, PrevValue: 900,
		TargetUnits: 12, TargetValue: 1200,
	}

	assert.Equal(t, 1000.0, r.Actual(MetricValue))
	assert.Equal(t, 10.0, r.Actual(MetricUnit))
	assert.Equal(t, 1200.0, r.Target(MetricValue))
	assert.Equal(t, 12.0, r.Target(MetricUnit))
	assert.Equal(t, 900.0, r.Previous(MetricValue))
	assert.Equal(t, 9.0, r.Previous(MetricUnit))
}

func TestSourceRow_Category(t *testing.T) {
	t.Parallel()

	r := SourceRow{Team: "DYNAMIC", Brand: "VONZ", Product: "VONZ TAB", Zone: "NORTH", Region: "LAHORE"}

	assert.Equal(t, "DYNAMIC", r.Category(CategoryTeam))
	assert.Equal(t, "VONZ", r.Category(CategoryBrand))
	assert.Equal(t, "VONZ TAB", r.Category(CategoryProduct))
	assert.Equal(t, "NORTH", r.Category(CategoryZone))
	assert.Equal(t, "LAHORE", r.Category(CategoryRegion))
	assert.Empty(t, r.Category(Category("segment")))
}

func TestCategoryLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Brands", CategoryBrand.Label())
	assert.Equal(t, "Brand", CategoryBrand.FactorKey())
	assert.Equal(t, "Regions", CategoryRegion.Label())
	assert.Len(t, Categories, 5)
}

func TestMarketBaseline_ForMetric(t *testing.T) {
	t.Parallel()

	b := MarketBaseline{
		MarketValue: 1000, MarketUnits: 10,
		MarketGrowthValue: 5, MarketGrowthUnits: 3,
		RankValue: 2, RankUnits: 4,
		BaselineValue: 200, BaselineUnits: 2,
	}

	v := b.ForMetric(MetricValue)
	assert.Equal(t, MetricView{MarketTotal: 1000, Baseline: 200, Rank: 2, MarketGrowth: 5}, v)

	u := b.ForMetric(MetricUnit)
	assert.Equal(t, MetricView{MarketTotal: 10, Baseline: 2, Rank: 4, MarketGrowth: 3}, u)
}

func TestParityReport_Status(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SUCCESS", ParityReport{Passed: true}.Status())
	assert.Equal(t, "FAILURE", ParityReport{}.Status())
}
