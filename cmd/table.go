package main

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/fetcher"
)

// readTable loads a reference workbook or CSV. When header is true the row
// at skip is returned separately and data starts after it.
func readTable(ctx context.Context, path string, skip int, header bool) ([]string, [][]string, error) {
	var (
		records []fetcher.Record
		err     error
	)
	headerCh := make(chan []string, 1)
	dataSkip := skip
	if header {
		dataSkip = skip + 1
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		opts := fetcher.XLSXOptions{SkipRows: dataSkip}
		if header {
			opts.HeaderCh = headerCh
		}
		records, err = fetcher.ReadXLSX(path, opts)
	case ".csv":
		opts := fetcher.CSVOptions{SkipRows: dataSkip, LazyQuotes: true}
		if header {
			opts.HeaderCh = headerCh
		}
		records, err = fetcher.ReadCSV(ctx, path, opts)
	default:
		return nil, nil, eris.Errorf("unsupported reference file %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, nil, err
	}

	var head []string
	select {
	case head = <-headerCh:
	default:
	}
	if header && head == nil {
		return nil, nil, eris.Errorf("%s: header row %d not found", path, dataSkip)
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		if r.Empty() {
			continue
		}
		rows = append(rows, r.Cells)
	}
	return head, rows, nil
}
