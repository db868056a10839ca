// Package report builds the executive summary and renders variance reports
// as Markdown, HTML and XLSX.
package report

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/projection"
	"github.com/sells-group/variance-cli/internal/target"
)

// DefaultTeams is the fixed team breakdown of the summary.
var DefaultTeams = []string{"DYNAMIC", "ACHIEVERS", "CONCORD", "PASSIONATE"}

// SummaryOptions configures the executive summary.
type SummaryOptions struct {
	Company           string
	Teams             []string
	Underperformers   int
	OnTrackPct        float64
	SlightlyBehindPct float64
}

func (o SummaryOptions) withDefaults() SummaryOptions {
	if o.Company == "" {
		o.Company = "Company"
	}
	if len(o.Teams) == 0 {
		o.Teams = DefaultTeams
	}
	if o.Underperformers <= 0 {
		o.Underperformers = 5
	}
	if o.OnTrackPct == 0 {
		o.OnTrackPct = 95
	}
	if o.SlightlyBehindPct == 0 {
		o.SlightlyBehindPct = 85
	}
	return o
}

// StatusFor maps overall achievement to a status tier.
func (o SummaryOptions) StatusFor(achievement float64) string {
	o = o.withDefaults()
	switch {
	case achievement >= o.OnTrackPct:
		return model.StatusOnTrack
	case achievement >= o.SlightlyBehindPct:
		return model.StatusBehind
	default:
		return model.StatusCritical
	}
}

var printer = message.NewPrinter(language.English)

// Amount formats v with thousands separators and no decimals.
func Amount(v float64) string {
	return printer.Sprintf("%.0f", v)
}

// Pct formats v as a one-decimal percentage.
func Pct(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

// title builds a fresh Caser per call; Casers are stateful.
func title(s string) string {
	return cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s)))
}

// BuildSummary derives the executive summary of one metric flavour from the
// derived per-row figures and the category tables.
func BuildSummary(m model.Metric, d target.Derived, tables map[model.Category][]model.CategoryAggregate, rawTargets model.TeamTargetMap, p projection.Period, opts SummaryOptions) model.ExecutiveSummary {
	opts = opts.withDefaults()

	actual, tgt := d.Totals()
	s := model.ExecutiveSummary{
		Metric:           m,
		TotalActual:      actual,
		TotalTarget:      tgt,
		Difference:       actual - tgt,
		AchievementPct:   projection.Percent(actual, tgt),
		IsSoftwareTarget: d.AnyTarget(),
		RawTargets:       rawTargets,
		DaysElapsed:      p.Elapsed,
		DaysRemaining:    p.Remaining(),
	}
	s.Status = opts.StatusFor(s.AchievementPct)
	s.Teams = teamRows(tables[model.CategoryTeam], opts.Teams)
	s.Underperformers = underperformers(tables[model.CategoryBrand], opts.Underperformers)
	s.Insights = insights(s, opts.Company)
	s.Commentary = commentary(s)
	return s
}

func teamRows(aggs []model.CategoryAggregate, teams []string) []model.TeamRow {
	byName := make(map[string]model.CategoryAggregate, len(aggs))
	for _, a := range aggs {
		key := strings.ToUpper(strings.TrimSpace(a.Name))
		if _, dup := byName[key]; !dup {
			byName[key] = a
		}
	}

	rows := make([]model.TeamRow, 0, len(teams))
	for _, team := range teams {
		a, ok := byName[strings.ToUpper(strings.TrimSpace(team))]
		if !ok {
			continue
		}
		rows = append(rows, model.TeamRow{
			Name:           strings.ToUpper(strings.TrimSpace(team)),
			Actual:         a.Actual,
			Target:         a.Target,
			ExpectedToDate: a.ExpectedToDate,
			Difference:     a.Difference,
			Achievement:    a.Achievement,
			ProjectionPct:  a.ProjectionPct,
			GrowthRate:     a.GrowthRate,
			DailyRequired:  a.DailyRequired,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Achievement > rows[j].Achievement })
	return rows
}

func underperformers(brands []model.CategoryAggregate, n int) []model.CategoryAggregate {
	var out []model.CategoryAggregate
	for _, b := range brands {
		if b.Difference < 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Difference < out[j].Difference })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func insights(s model.ExecutiveSummary, company string) []string {
	var out []string
	if s.Difference < 0 {
		out = append(out, printer.Sprintf("%s is trailing the target by %s, requiring immediate gap-closure initiatives.",
			company, Amount(math.Abs(s.Difference))))
	} else {
		out = append(out, printer.Sprintf("%s is exceeding the target by %s, maintaining a strong growth trajectory.",
			company, Amount(s.Difference)))
	}

	if len(s.Underperformers) > 0 {
		worst := s.Underperformers[0]
		out = append(out, printer.Sprintf("Major shortfall detected in %s, contributing %s to the deficit.",
			title(worst.Name), Amount(math.Abs(worst.Difference))))
	}

	if len(s.Teams) > 0 {
		top, bottom := s.Teams[0], s.Teams[len(s.Teams)-1]
		out = append(out, printer.Sprintf("Team %s leads with highest efficiency, whilst %s requires structural review.",
			title(top.Name), title(bottom.Name)))
	}
	return out
}

func commentary(s model.ExecutiveSummary) string {
	if len(s.Teams) == 0 {
		return ""
	}
	top := title(s.Teams[0].Name)
	if len(s.Underperformers) == 0 {
		return printer.Sprintf("%s Team is leading in performance across the portfolio.", top)
	}

	var totalGap float64
	for _, u := range s.Underperformers {
		totalGap += math.Abs(u.Difference)
	}
	worst := s.Underperformers[0]
	var contrib float64
	if totalGap > 0 {
		contrib = math.Abs(worst.Difference) / totalGap * 100
	}
	return printer.Sprintf("%s Team is leading in performance, but %s gaps are driving %.0f%% of the top brand shortfalls.",
		top, title(worst.Name), contrib)
}

// Build assembles the report of one flavour.
func Build(m model.Metric, p projection.Period, summary model.ExecutiveSummary, tables map[model.Category][]model.CategoryAggregate) model.Report {
	return model.Report{
		Metric:  m,
		Header:  p.Header(),
		Summary: summary,
		Tables:  tables,
	}
}
