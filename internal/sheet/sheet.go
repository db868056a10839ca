// Package sheet turns the portal's target-vs-achievement export into typed
// source rows following the fixed column contract.
package sheet

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/fetcher"
	"github.com/sells-group/variance-cli/internal/model"
)

// ErrSourceMissing is returned when no readable input spreadsheet exists.
// The run must abort before any computation.
var ErrSourceMissing = errors.New("sheet: source spreadsheet missing")

// Options controls how the source is located and read.
type Options struct {
	Path      string // explicit file; wins over Dir
	Dir       string // newest .xlsx/.csv here when Path is empty
	SkipRows  int    // banner + header rows before data
	SheetName string
}

// Resolve returns the input file path: Path when set, else the newest
// spreadsheet in Dir.
func Resolve(opts Options) (string, error) {
	if opts.Path != "" {
		return opts.Path, nil
	}
	if opts.Dir == "" {
		return "", eris.Wrap(ErrSourceMissing, "sheet: no path or dir configured")
	}
	path, err := fetcher.LatestFile(opts.Dir, ".xlsx", ".csv")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", eris.Wrapf(ErrSourceMissing, "sheet: nothing to read in %s", opts.Dir)
		}
		return "", eris.Wrap(err, "sheet: resolve source")
	}
	return path, nil
}

// Load reads every data row of the source file. Fully blank lines are
// dropped; everything else, including all-zero rows and rollup rows, is
// returned in sheet order.
func Load(ctx context.Context, path string, opts Options) ([]model.SourceRow, error) {
	records, err := read(ctx, path, opts)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(ErrSourceMissing, "sheet: %s", path)
		}
		return nil, eris.Wrapf(err, "sheet: read %s", path)
	}

	rows := make([]model.SourceRow, 0, len(records))
	var coerced int
	for _, rec := range records {
		if rec.Empty() {
			continue
		}
		row, bad := parseRecord(rec)
		coerced += bad
		rows = append(rows, row)
	}

	zap.L().Info("sheet: loaded source",
		zap.String("path", path),
		zap.Int("records", len(records)),
		zap.Int("rows", len(rows)),
		zap.Int("coerced_cells", coerced),
	)
	return rows, nil
}

func read(ctx context.Context, path string, opts Options) ([]fetcher.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return fetcher.ReadCSV(ctx, path, fetcher.CSVOptions{
			SkipRows:   opts.SkipRows,
			LazyQuotes: true,
			Width:      model.SourceWidth,
		})
	case ".xlsx":
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		return fetcher.ReadXLSX(path, fetcher.XLSXOptions{
			SheetName: opts.SheetName,
			SkipRows:  opts.SkipRows,
			Width:     model.SourceWidth,
		})
	default:
		return nil, eris.Errorf("sheet: unsupported file type %q", filepath.Ext(path))
	}
}

// parseRecord maps a record onto the column contract and returns the number
// of non-blank numeric cells that could not be parsed.
func parseRecord(rec fetcher.Record) (model.SourceRow, int) {
	bad := 0
	num := func(col int) float64 {
		v, ok := ParseNumber(rec.Cell(col))
		if !ok {
			bad++
			zap.L().Debug("sheet: unparseable numeric cell coerced to 0",
				zap.Int("line", rec.Line),
				zap.Int("column", col),
				zap.String("raw", rec.Cell(col)),
			)
		}
		return v
	}

	row := model.SourceRow{
		Line:    rec.Line,
		Label:   rec.Cell(model.ColLabel),
		Team:    rec.Cell(model.ColTeam),
		Brand:   rec.Cell(model.ColBrand),
		Product: rec.Cell(model.ColProduct),
		Code:    rec.Cell(model.ColCode),
		Zone:    rec.Cell(model.ColZone),
		Region:  rec.Cell(model.ColRegion),

		SaleUnits:   num(model.ColSaleUnits),
		SaleValue:   num(model.ColSaleValue),
		PrevUnits:   num(model.ColPrevUnits),
		PrevValue:   num(model.ColPrevValue),
		TargetUnits: num(model.ColTargetUnits),
		TargetValue: num(model.ColTargetValue),
	}
	return row, bad
}

// ParseNumber converts a sheet cell to float64. Blank cells and the usual
// spreadsheet placeholders yield (0, true); anything else that is not a
// finite number yields (0, false). Thousands separators are stripped and
// accounting negatives "(1,234)" are honoured.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	switch strings.ToUpper(s) {
	case "", "-", "NAN", "NONE", "NULL", "N/A", "#N/A":
		return 0, true
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSuffix(s, "%")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}
