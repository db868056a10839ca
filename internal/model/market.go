package model

// MarketBaseline is the externally sourced market picture for one brand. It
// is built offline, cached as JSON and read-only at report time.
type MarketBaseline struct {
	Molecule          string  `json:"molecule"`
	MarketValue       float64 `json:"market_value"`
	MarketUnits       float64 `json:"market_units"`
	MarketGrowthValue float64 `json:"market_growth_value"`
	MarketGrowthUnits float64 `json:"market_growth_units"`
	RankValue         int     `json:"rank_value"`
	RankUnits         int     `json:"rank_units"`
	TotalCompetitors  int     `json:"total_competitors"`
	BaselineValue     float64 `json:"baseline_value"`
	BaselineUnits     float64 `json:"baseline_units"`
}

// MetricView is the metric-specific slice of a baseline.
type MetricView struct {
	MarketTotal  float64
	Baseline     float64
	Rank         int
	MarketGrowth float64 // percent, e.g. 12.5
}

// ForMetric picks the value or unit flavour of the baseline.
func (b MarketBaseline) ForMetric(m Metric) MetricView {
	if m == MetricUnit {
		return MetricView{
			MarketTotal:  b.MarketUnits,
			Baseline:     b.BaselineUnits,
			Rank:         b.RankUnits,
			MarketGrowth: b.MarketGrowthUnits,
		}
	}
	return MetricView{
		MarketTotal:  b.MarketValue,
		Baseline:     b.BaselineValue,
		Rank:         b.RankValue,
		MarketGrowth: b.MarketGrowthValue,
	}
}

// UnmappedMolecule marks a brand absent from the market cache.
const UnmappedMolecule = "N/A"

// MarketContext holds the market metrics attached to a brand aggregate.
type MarketContext struct {
	Mapped           bool    `json:"mapped"`
	Molecule         string  `json:"molecule"`
	Rank             int     `json:"rank"`
	TotalCompetitors int     `json:"total_competitors"`
	Share            float64 `json:"share"`
	EvolutionIndex   float64 `json:"evolution_index"`
	MarketTotal      float64 `json:"market_total"`
	OpportunityGap   float64 `json:"opportunity_gap"`
}
