package model

// Category is an aggregation dimension of the report.
type Category string

const (
	CategoryTeam    Category = "team"
	CategoryBrand   Category = "brand"
	CategoryProduct Category = "product"
	CategoryZone    Category = "zone"
	CategoryRegion  Category = "region"
)

// Categories lists the dimensions in report order.
var Categories = []Category{CategoryTeam, CategoryBrand, CategoryProduct, CategoryZone, CategoryRegion}

// Label is the plural table heading ("Teams", "Brands", ...).
func (c Category) Label() string {
	switch c {
	case CategoryTeam:
		return "Teams"
	case CategoryBrand:
		return "Brands"
	case CategoryProduct:
		return "Products"
	case CategoryZone:
		return "Zones"
	case CategoryRegion:
		return "Regions"
	default:
		return string(c)
	}
}

// FactorKey is the level key used in the surge factor reference file.
func (c Category) FactorKey() string {
	switch c {
	case CategoryTeam:
		return "Team"
	case CategoryBrand:
		return "Brand"
	case CategoryProduct:
		return "Product"
	case CategoryZone:
		return "Zone"
	case CategoryRegion:
		return "Region"
	default:
		return string(c)
	}
}

// CategoryAggregate is one row of a per-category table. Actual and Target are
// sums over exactly the clean rows carrying Name in the category column.
type CategoryAggregate struct {
	Category          Category       `json:"category"`
	Name              string         `json:"name"`
	Actual            float64        `json:"actual"`
	Target            float64        `json:"target"`
	ExpectedToDate    float64        `json:"expected_to_date"`
	Difference        float64        `json:"difference"`
	Projected         float64        `json:"projected"`
	ProjectionPct     float64        `json:"projection_pct"`
	DailyRequired     float64        `json:"daily_required"`
	GrowthRate        float64        `json:"growth_rate"`
	Achievement       float64        `json:"achievement"`
	SurgeFactor       float64        `json:"surge_factor"`
	HasSoftwareTarget bool           `json:"has_software_target"`
	Market            *MarketContext `json:"market,omitempty"`
}
