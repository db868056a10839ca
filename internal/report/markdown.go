package report

import (
	"sort"
	"strings"

	"github.com/sells-group/variance-cli/internal/model"
)

// TargetMarker flags figures that include a sheet-supplied target.
const TargetMarker = "*"

// Markdown renders the report as GitHub-flavoured Markdown.
func Markdown(r model.Report) string {
	var b strings.Builder
	s := r.Summary

	b.WriteString(printer.Sprintf("# %s Variance Report\n\n", r.Metric.Title()))
	b.WriteString(r.Header + "\n\n")

	b.WriteString("## Executive Summary\n\n")
	b.WriteString("| Actual | Target | Difference | Achievement | Status |\n")
	b.WriteString("|---:|---:|---:|---:|---|\n")
	b.WriteString(printer.Sprintf("| %s | %s | %s | %s | %s |\n\n",
		Amount(s.TotalActual), targetCell(s.TotalTarget, s.IsSoftwareTarget), Amount(s.Difference), Pct(s.AchievementPct), s.Status))

	if len(s.Teams) > 0 {
		b.WriteString("### Team Performance\n\n")
		b.WriteString("| Team | Actual | Target | Expected | Difference | Achievement | Projection | Req. Growth | Daily Required |\n")
		b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|\n")
		for _, t := range s.Teams {
			b.WriteString(printer.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				escape(t.Name), Amount(t.Actual), Amount(t.Target), Amount(t.ExpectedToDate), Amount(t.Difference),
				Pct(t.Achievement), Pct(t.ProjectionPct), Pct(t.GrowthRate), Amount(t.DailyRequired)))
		}
		b.WriteString("\n")
	}

	if len(s.RawTargets) > 0 {
		b.WriteString("### Rollup Targets\n\n")
		b.WriteString("| Team | Rollup Target |\n|---|---:|\n")
		names := make([]string, 0, len(s.RawTargets))
		for name := range s.RawTargets {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(printer.Sprintf("| %s | %s |\n", escape(name), Amount(s.RawTargets[name])))
		}
		b.WriteString("\n")
	}

	if len(s.Underperformers) > 0 {
		b.WriteString("### Top Underperforming Brands\n\n")
		b.WriteString("| Brand | Actual | Expected | Difference |\n|---|---:|---:|---:|\n")
		for _, u := range s.Underperformers {
			b.WriteString(printer.Sprintf("| %s | %s | %s | %s |\n",
				escape(u.Name), Amount(u.Actual), Amount(u.ExpectedToDate), Amount(u.Difference)))
		}
		b.WriteString("\n")
	}

	if len(s.Insights) > 0 {
		b.WriteString("### Strategic Insights\n\n")
		for _, in := range s.Insights {
			b.WriteString("- " + in + "\n")
		}
		b.WriteString("\n")
	}
	if s.Commentary != "" {
		b.WriteString("> " + s.Commentary + "\n\n")
	}

	for _, c := range model.Categories {
		aggs, ok := r.Tables[c]
		if !ok {
			continue
		}
		writeTable(&b, c, aggs)
	}

	if s.IsSoftwareTarget {
		b.WriteString("\\" + TargetMarker + " includes targets supplied in the source sheet.\n")
	}
	return b.String()
}

func writeTable(b *strings.Builder, c model.Category, aggs []model.CategoryAggregate) {
	b.WriteString("## " + c.Label() + "\n\n")
	brand := c == model.CategoryBrand

	b.WriteString("| Name | Actual | Target | Expected | Difference | Projected | Projection | Daily Required | Req. Growth |")
	if brand {
		b.WriteString(" Molecule | Rank | Share | EI | Market | Opportunity |")
	}
	b.WriteString("\n|---|---:|---:|---:|---:|---:|---:|---:|---:|")
	if brand {
		b.WriteString("---|---:|---:|---:|---:|---:|")
	}
	b.WriteString("\n")

	for _, a := range aggs {
		b.WriteString(printer.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s |",
			escape(a.Name), Amount(a.Actual), targetCell(a.Target, a.HasSoftwareTarget), Amount(a.ExpectedToDate),
			Amount(a.Difference), Amount(a.Projected), Pct(a.ProjectionPct), Amount(a.DailyRequired), Pct(a.GrowthRate)))
		if brand {
			mc := a.Market
			if mc == nil {
				mc = &model.MarketContext{Molecule: model.UnmappedMolecule}
			}
			b.WriteString(printer.Sprintf(" %s | %s | %s | %s | %s | %s |",
				escape(mc.Molecule), rank(mc), Pct(mc.Share), printer.Sprintf("%.1f", mc.EvolutionIndex),
				Amount(mc.MarketTotal), Amount(mc.OpportunityGap)))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func rank(mc *model.MarketContext) string {
	if !mc.Mapped {
		return "-"
	}
	return printer.Sprintf("%d/%d", mc.Rank, mc.TotalCompetitors)
}

func targetCell(v float64, fromSheet bool) string {
	if fromSheet {
		return Amount(v) + "\\" + TargetMarker
	}
	return Amount(v)
}

var mdEscaper = strings.NewReplacer("|", "\\|", "*", "\\*", "_", "\\_")

func escape(s string) string {
	if s == "" {
		return "(blank)"
	}
	return mdEscaper.Replace(s)
}
