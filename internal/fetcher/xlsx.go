package fetcher

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions configures the XLSX parser.
type XLSXOptions struct {
	SheetIndex int             // default 0
	SheetName  string          // if set, overrides SheetIndex
	SkipRows   int             // number of leading rows to skip
	HeaderRow  int             // 1-based row sent to HeaderCh; 0 means SkipRows
	HeaderCh   chan<- []string // optional, must be buffered
	Width      int             // pad short rows to this many cells
}

// ReadXLSX reads one sheet of an XLSX file. Rows before SkipRows are dropped;
// blank rows are kept so that Record.Line matches the sheet.
func ReadXLSX(path string, opts XLSXOptions) ([]Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open file %s", path)
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	headerRow := opts.HeaderRow
	if headerRow == 0 {
		headerRow = opts.SkipRows
	}

	var rows []Record
	for i, row := range sheet.Rows {
		line := i + 1
		if row == nil {
			if line > opts.SkipRows {
				rows = append(rows, Record{Line: line, Cells: make([]string, opts.Width)})
			}
			continue
		}
		cells := rowToStrings(row, opts.Width)

		if line == headerRow && opts.HeaderCh != nil {
			opts.HeaderCh <- cells
		}

		if line <= opts.SkipRows {
			continue
		}

		rows = append(rows, Record{Line: line, Cells: cells})
	}

	return rows, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row, width int) []string {
	n := len(row.Cells)
	if width > n {
		n = width
	}
	cells := make([]string, n)
	for j, cell := range row.Cells {
		if cell == nil {
			continue
		}
		cells[j] = cellText(cell)
	}
	return cells
}

// cellText returns the stored value of numeric cells and the display text of
// everything else. Number formats ("#,##0", "0%") must not round or scale
// the figures the pipeline sums.
func cellText(cell *xlsx.Cell) string {
	if cell.Type() == xlsx.CellTypeNumeric && cell.Value != "" {
		return cell.Value
	}
	return cell.String()
}
