package parity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/variance-cli/internal/model"
)

// AuditLog receives one record per parity evaluation.
type AuditLog interface {
	Append(ctx context.Context, rep model.ParityReport) error
}

// FileAuditLog appends human-readable, timestamped blocks to a text file.
type FileAuditLog struct {
	path string
	mu   sync.Mutex
}

// NewFileAuditLog returns a log writing to path. The file is created on the
// first append.
func NewFileAuditLog(path string) *FileAuditLog {
	return &FileAuditLog{path: path}
}

// Path returns the log location.
func (l *FileAuditLog) Path() string { return l.path }

// Append writes rep as one block.
func (l *FileAuditLog) Append(_ context.Context, rep model.ParityReport) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "parity: create audit dir %s", dir)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return eris.Wrapf(err, "parity: open audit log %s", l.path)
	}
	defer f.Close() //nolint:errcheck

	if _, err := f.WriteString(FormatBlock(rep)); err != nil {
		return eris.Wrap(err, "parity: write audit log")
	}
	return nil
}

// FormatBlock renders the audit text of one report.
func FormatBlock(rep model.ParityReport) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString(p.Sprintf("--- %s ---\n", rep.CheckedAt.Format("2006-01-02 15:04:05")))
	b.WriteString(p.Sprintf("[%s] Binary Parity Check:\n", strings.ToUpper(string(rep.Metric))))
	if rep.RunID != "" {
		b.WriteString(p.Sprintf("  - Run:                         %s\n", rep.RunID))
	}
	b.WriteString(p.Sprintf("  - Raw Total (incl. summaries): %.2f\n", rep.RawTotal))
	b.WriteString(p.Sprintf("  - Excluded Summary Subtotals:  %.2f\n", rep.ExcludedTotal))
	b.WriteString(p.Sprintf("  - Verified Meaningful Total:   %.2f\n", rep.MeaningfulTotal))
	b.WriteString(p.Sprintf("  - Processed Total:             %.2f\n", rep.ProcessedTotal))
	b.WriteString(p.Sprintf("  - Parity Difference:           %.5f\n", rep.Difference))
	b.WriteString(p.Sprintf("  - Final Integrity Status:      %s\n\n", rep.Status()))
	return b.String()
}

// MultiAudit fans a record out to several sinks. Every sink is attempted;
// the errors are joined.
type MultiAudit []AuditLog

// Append implements AuditLog.
func (m MultiAudit) Append(ctx context.Context, rep model.ParityReport) error {
	var errs []error
	for _, a := range m {
		if a == nil {
			continue
		}
		if err := a.Append(ctx, rep); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
