package report

import (
	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"github.com/sells-group/variance-cli/internal/model"
)

const summarySheet = "Summary"

var tableHeaders = []string{
	"Name", "Actual", "Target", "Sheet Target", "Expected", "Difference",
	"Projected", "Projection %", "Daily Required", "Req. Growth %", "Surge",
}

var marketHeaders = []string{"Molecule", "Rank", "Competitors", "Share %", "EI", "Market", "Opportunity"}

// WriteXLSX saves the report as a workbook with a summary sheet and one sheet
// per category.
func WriteXLSX(path string, r model.Report) error {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return eris.Wrap(err, "report: create header style")
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return eris.Wrap(err, "report: rename summary sheet")
	}
	if err := writeSummarySheet(f, r, headerStyle); err != nil {
		return err
	}

	for _, c := range model.Categories {
		aggs, ok := r.Tables[c]
		if !ok {
			continue
		}
		if err := writeCategorySheet(f, c, aggs, headerStyle); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, r model.Report, headerStyle int) error {
	s := r.Summary
	rows := [][]any{
		{r.Metric.Title() + " Variance Report"},
		{r.Header},
		{},
		{"Actual", s.TotalActual},
		{"Target", s.TotalTarget},
		{"Difference", s.Difference},
		{"Achievement %", s.AchievementPct},
		{"Status", s.Status},
		{"Days Elapsed", s.DaysElapsed},
		{"Days Remaining", s.DaysRemaining},
		{},
	}
	for _, in := range s.Insights {
		rows = append(rows, []any{in})
	}
	if s.Commentary != "" {
		rows = append(rows, []any{s.Commentary})
	}
	rows = append(rows, []any{})

	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row); err != nil {
			return err
		}
	}

	if len(s.Teams) == 0 {
		return nil
	}
	start := len(rows) + 1
	if err := setHeader(f, summarySheet, start, headerStyle,
		[]string{"Team", "Actual", "Target", "Expected", "Difference", "Achievement %", "Projection %", "Req. Growth %", "Daily Required"}); err != nil {
		return err
	}
	for i, t := range s.Teams {
		row := []any{t.Name, t.Actual, t.Target, t.ExpectedToDate, t.Difference, t.Achievement, t.ProjectionPct, t.GrowthRate, t.DailyRequired}
		if err := setRow(f, summarySheet, start+1+i, row); err != nil {
			return err
		}
	}
	return f.SetColWidth(summarySheet, "A", "A", 30)
}

func writeCategorySheet(f *excelize.File, c model.Category, aggs []model.CategoryAggregate, headerStyle int) error {
	name := c.Label()
	if _, err := f.NewSheet(name); err != nil {
		return eris.Wrapf(err, "report: create sheet %s", name)
	}

	headers := tableHeaders
	brand := c == model.CategoryBrand
	if brand {
		headers = append(append([]string{}, tableHeaders...), marketHeaders...)
	}
	if err := setHeader(f, name, 1, headerStyle, headers); err != nil {
		return err
	}

	for i, a := range aggs {
		row := []any{a.Name, a.Actual, a.Target, a.HasSoftwareTarget, a.ExpectedToDate, a.Difference,
			a.Projected, a.ProjectionPct, a.DailyRequired, a.GrowthRate, a.SurgeFactor}
		if brand {
			mc := a.Market
			if mc == nil {
				mc = &model.MarketContext{Molecule: model.UnmappedMolecule}
			}
			row = append(row, mc.Molecule, mc.Rank, mc.TotalCompetitors, mc.Share, mc.EvolutionIndex, mc.MarketTotal, mc.OpportunityGap)
		}
		if err := setRow(f, name, i+2, row); err != nil {
			return err
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetColWidth(name, "A", last, 15); err != nil {
		return eris.Wrapf(err, "report: set widths on %s", name)
	}
	return f.SetColWidth(name, "A", "A", 30)
}

func setHeader(f *excelize.File, sheet string, row, style int, headers []string) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return eris.Wrapf(err, "report: write header %s!%s", sheet, cell)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return eris.Wrapf(err, "report: style header %s!%s", sheet, cell)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	if len(values) == 0 {
		return nil
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return eris.Wrapf(err, "report: write row %s!%s", sheet, cell)
	}
	return nil
}
