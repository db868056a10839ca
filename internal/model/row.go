package model

// Fixed 0-based column positions of the source sheet. The mapping is a
// compatibility contract with the portal export and must not drift.
const (
	ColTeam        = 0
	ColBrand       = 1
	ColProduct     = 2
	ColCode        = 3
	ColZone        = 4
	ColRegion      = 5
	ColSaleUnits   = 6
	ColSaleValue   = 7
	ColPrevUnits   = 10
	ColPrevValue   = 11
	ColTargetUnits = 12
	ColTargetValue = 13

	// ColLabel is the group label column; leaf rows carry the team name
	// there, rollup rows carry "All", "X Summary", "Total" and so on.
	ColLabel = ColTeam

	// SourceWidth is the number of columns the contract reads.
	SourceWidth = ColTargetValue + 1
)

// SourceRow is one data line of the spreadsheet after the banner rows.
// Numeric cells that are missing or unparseable are stored as 0.
type SourceRow struct {
	Line    int    `json:"line"`
	Label   string `json:"label"`
	Team    string `json:"team"`
	Brand   string `json:"brand"`
	Product string `json:"product"`
	Code    string `json:"code"`
	Zone    string `json:"zone"`
	Region  string `json:"region"`

	SaleUnits   float64 `json:"sale_units"`
	SaleValue   float64 `json:"sale_value"`
	PrevUnits   float64 `json:"prev_units"`
	PrevValue   float64 `json:"prev_value"`
	TargetUnits float64 `json:"target_units"`
	TargetValue float64 `json:"target_value"`
}

// Actual returns the current-period measure for m.
func (r SourceRow) Actual(m Metric) float64 {
	if m == MetricUnit {
		return r.SaleUnits
	}
	return r.SaleValue
}

// Target returns the target column for m.
func (r SourceRow) Target(m Metric) float64 {
	if m == MetricUnit {
		return r.TargetUnits
	}
	return r.TargetValue
}

// Previous returns the previous-period measure for m.
func (r SourceRow) Previous(m Metric) float64 {
	if m == MetricUnit {
		return r.PrevUnits
	}
	return r.PrevValue
}

// Category returns the row's value for an aggregation dimension.
func (r SourceRow) Category(c Category) string {
	switch c {
	case CategoryTeam:
		return r.Team
	case CategoryBrand:
		return r.Brand
	case CategoryProduct:
		return r.Product
	case CategoryZone:
		return r.Zone
	case CategoryRegion:
		return r.Region
	default:
		return ""
	}
}
