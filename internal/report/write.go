package report

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/model"
)

// Supported output formats.
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatXLSX     = "xlsx"
)

// FileName returns the output file name of one flavour, e.g.
// "variance_value_2026-02-17.md".
func FileName(m model.Metric, stamp, format string) string {
	name := "variance_" + string(m)
	if stamp != "" {
		name += "_" + stamp
	}
	return name + "." + format
}

// WriteAll renders r in each requested format under dir and returns the
// written paths in format order. Unknown formats are an error.
func WriteAll(dir, stamp string, r model.Report, formats []string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create output dir %s", dir)
	}

	var (
		markdown string
		paths    []string
	)
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		path := filepath.Join(dir, FileName(r.Metric, stamp, format))

		switch format {
		case FormatMarkdown, FormatHTML:
			if markdown == "" {
				markdown = Markdown(r)
			}
			content := markdown
			if format == FormatHTML {
				var err error
				content, err = HTML(r.Metric.Title()+" Variance Report", markdown)
				if err != nil {
					return paths, err
				}
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return paths, eris.Wrapf(err, "report: write %s", path)
			}
		case FormatXLSX:
			if err := WriteXLSX(path, r); err != nil {
				return paths, err
			}
		default:
			return paths, eris.Errorf("report: unsupported format %q", format)
		}

		paths = append(paths, path)
		zap.L().Info("report: written",
			zap.String("metric", string(r.Metric)),
			zap.String("format", format),
			zap.String("path", path),
		)
	}
	return paths, nil
}
