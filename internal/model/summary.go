package model

// TeamTargetMap maps a canonical team name to the target summed from its
// rollup rows. Used for reconciliation display only.
type TeamTargetMap map[string]float64

// Status tiers derived from overall achievement.
const (
	StatusOnTrack  = "On Track"
	StatusBehind   = "Slightly Behind Plan"
	StatusCritical = "Critical Attention Required"
)

// TeamRow is one line of the fixed team breakdown.
type TeamRow struct {
	Name           string  `json:"name"`
	Actual         float64 `json:"actual"`
	Target         float64 `json:"target"`
	ExpectedToDate float64 `json:"expected_to_date"`
	Difference     float64 `json:"difference"`
	Achievement    float64 `json:"achievement"`
	ProjectionPct  float64 `json:"projection_pct"`
	GrowthRate     float64 `json:"growth_rate"`
	DailyRequired  float64 `json:"daily_required"`
}

// ExecutiveSummary is the first-page digest of a report flavour.
type ExecutiveSummary struct {
	Metric           Metric              `json:"metric"`
	TotalActual      float64             `json:"total_actual"`
	TotalTarget      float64             `json:"total_target"`
	Difference       float64             `json:"difference"`
	AchievementPct   float64             `json:"achievement_pct"`
	Status           string              `json:"status"`
	IsSoftwareTarget bool                `json:"is_software_target"`
	Teams            []TeamRow           `json:"teams"`
	Underperformers  []CategoryAggregate `json:"underperformers"`
	Insights         []string            `json:"insights"`
	Commentary       string              `json:"commentary"`
	RawTargets       TeamTargetMap       `json:"raw_targets,omitempty"`
	DaysElapsed      int                 `json:"days_elapsed"`
	DaysRemaining    int                 `json:"days_remaining"`
}

// Report is everything a renderer needs for one metric flavour.
type Report struct {
	Metric  Metric                           `json:"metric"`
	Header  string                           `json:"header"`
	Summary ExecutiveSummary                 `json:"summary"`
	Tables  map[Category][]CategoryAggregate `json:"tables"`
}
