// Package fetcher reads the tabular and JSON inputs of a run from local disk.
package fetcher

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Record is one sheet or CSV line with its 1-based position in the file.
type Record struct {
	Line  int
	Cells []string
}

// Cell returns the trimmed cell at column i, or "" when the row is short.
func (r Record) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

// Empty reports whether every cell is blank.
func (r Record) Empty() bool {
	for _, c := range r.Cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// LatestFile returns the most recently modified regular file in dir whose
// extension matches one of exts (case-insensitive, with the dot). Office
// lock files ("~$name.xlsx") are ignored.
func LatestFile(dir string, exts ...string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: read dir %s", dir)
	}

	var (
		best    string
		bestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		if !hasExt(e.Name(), exts) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", eris.Wrapf(err, "fetcher: stat %s", e.Name())
		}
		if best == "" || info.ModTime().After(bestMod) {
			best = filepath.Join(dir, e.Name())
			bestMod = info.ModTime()
		}
	}

	if best == "" {
		return "", eris.Wrapf(os.ErrNotExist, "fetcher: no %s file in %s", strings.Join(exts, "/"), dir)
	}
	return best, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
