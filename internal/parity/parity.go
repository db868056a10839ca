// Package parity cross-checks the cleaned rows against an independent
// classification of the raw sheet and gates report generation on the result.
package parity

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/variance-cli/internal/classify"
	"github.com/sells-group/variance-cli/internal/model"
)

// DefaultTolerance is the allowed relative difference (0.01%).
const DefaultTolerance = 0.0001

// ErrParityFailed means the processed total drifted from the raw meaningful
// total. Callers must not emit or dispatch any report.
var ErrParityFailed = errors.New("parity: processed total does not match source")

// Validator recomputes the meaningful total from raw rows with its own
// classifier and compares it to the total over the cleaned rows.
type Validator struct {
	classifier *classify.Classifier
	tolerance  float64
	audit      AuditLog
	now        func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithTolerance sets the relative tolerance. Negative values are ignored.
func WithTolerance(tol float64) Option {
	return func(v *Validator) {
		if tol >= 0 {
			v.tolerance = tol
		}
	}
}

// WithAudit sets the audit sink.
func WithAudit(a AuditLog) Option {
	return func(v *Validator) { v.audit = a }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// NewValidator builds a Validator around rules. The classifier is built
// here from the rules rather than shared with the cleaning step.
func NewValidator(rules classify.Rules, opts ...Option) *Validator {
	v := &Validator{
		classifier: classify.New(rules),
		tolerance:  DefaultTolerance,
		now:        time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Tolerance returns the configured relative tolerance.
func (v *Validator) Tolerance() float64 { return v.tolerance }

// Evaluate computes the parity figures without side effects.
func (v *Validator) Evaluate(raw, clean []model.SourceRow, m model.Metric) model.ParityReport {
	var rawTotal, excluded, meaningful, processed float64
	for _, r := range raw {
		a := r.Actual(m)
		rawTotal += a
		if v.classifier.IsRollup(r) {
			excluded += a
		} else {
			meaningful += a
		}
	}
	for _, r := range clean {
		processed += r.Actual(m)
	}

	diff := math.Abs(meaningful - processed)
	return model.ParityReport{
		Metric:          m,
		RawTotal:        rawTotal,
		ExcludedTotal:   excluded,
		MeaningfulTotal: meaningful,
		ProcessedTotal:  processed,
		Difference:      diff,
		Tolerance:       v.tolerance,
		Passed:          passes(meaningful, processed, diff, v.tolerance),
		CheckedAt:       v.now(),
	}
}

// passes: both totals exactly zero, or relative difference within tol.
// The denominator is |meaningful| so that net-negative sheets are checked
// instead of failing outright.
func passes(meaningful, processed, diff, tol float64) bool {
	if meaningful == 0 && processed == 0 {
		return true
	}
	if meaningful == 0 || math.IsNaN(diff) {
		return false
	}
	return diff/math.Abs(meaningful) <= tol
}

// Validate evaluates parity for m, logs the outcome and appends an audit
// record. The returned bool is the gate.
func (v *Validator) Validate(ctx context.Context, runID string, raw, clean []model.SourceRow, m model.Metric) (model.ParityReport, bool) {
	rep := v.Evaluate(raw, clean, m)
	rep.RunID = runID

	fields := []zap.Field{
		zap.String("run_id", runID),
		zap.String("metric", string(m)),
		zap.Float64("raw_total", rep.RawTotal),
		zap.Float64("excluded_total", rep.ExcludedTotal),
		zap.Float64("meaningful_total", rep.MeaningfulTotal),
		zap.Float64("processed_total", rep.ProcessedTotal),
		zap.Float64("difference", rep.Difference),
		zap.Float64("tolerance", rep.Tolerance),
	}
	if rep.Passed {
		zap.L().Info("parity: data integrity verified", fields...)
	} else {
		zap.L().Error("parity: DATA INTEGRITY BREACH, report generation aborted", fields...)
	}

	if v.audit != nil {
		if err := v.audit.Append(ctx, rep); err != nil {
			zap.L().Error("parity: audit append failed", zap.String("metric", string(m)), zap.Error(err))
		}
	}
	return rep, rep.Passed
}

// Check validates every metric and returns ErrParityFailed (wrapped) when
// any of them fails. All metrics are evaluated and audited even after a
// failure so the audit log carries the full picture.
func (v *Validator) Check(ctx context.Context, runID string, raw, clean []model.SourceRow, metrics ...model.Metric) ([]model.ParityReport, error) {
	reports := make([]model.ParityReport, 0, len(metrics))
	var failed []string
	for _, m := range metrics {
		rep, ok := v.Validate(ctx, runID, raw, clean, m)
		reports = append(reports, rep)
		if !ok {
			failed = append(failed, string(m))
		}
	}
	if len(failed) > 0 {
		return reports, eris.Wrapf(ErrParityFailed, "parity: failed for %v", failed)
	}
	return reports, nil
}
