package parity

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/variance-cli/internal/classify"
	"github.com/sells-group/variance-cli/internal/model"
	"github.com/sells-group/variance-cli/internal/projection"
	"github.com/sells-group/variance-cli/internal/target"
)

type memAudit struct {
	reports []model.ParityReport
	err     error
}

func (m *memAudit) Append(_ context.Context, rep model.ParityReport) error {
	m.reports = append(m.reports, rep)
	return m.err
}

var fixed = time.Date(2026, time.February, 17, 20, 0, 0, 0, time.UTC)

func scenarioRows() []model.SourceRow {
	var raw []model.SourceRow
	line := 4
	for i := 0; i < 8; i++ {
		raw = append(raw, model.SourceRow{Line: line, Label: "DYNAMIC", Team: "DYNAMIC", SaleValue: 30000, SaleUnits: 10})
		line++
	}
	for _, label := range []string{"All", "X Summary", "Total"} {
		raw = append(raw, model.SourceRow{Line: line, Label: label, Team: label, SaleValue: 240000, SaleUnits: 80})
		line++
	}
	raw = append(raw,
		model.SourceRow{Line: line, Label: "GHOST", Team: "GHOST", SaleValue: 10000},
		model.SourceRow{Line: line + 1, Label: "PHANTOM", Team: "PHANTOM", SaleValue: 5000},
	)
	return raw
}

func TestValidate_RollupAndGhostScenario(t *testing.T) {
	raw := scenarioRows()
	clean := classify.New(classify.DefaultRules()).Clean(raw)

	var total float64
	for _, r := range clean {
		total += r.SaleValue
	}
	assert.Equal(t, 255000.0, total)
	assert.Len(t, clean, 10, "unmapped-team rows are retained")

	audit := &memAudit{}
	v := NewValidator(classify.DefaultRules(), WithAudit(audit), WithClock(func() time.Time { return fixed }))
	rep, ok := v.Validate(context.Background(), "run-1", raw, clean, model.MetricValue)
	require.True(t, ok)

	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, model.MetricValue, rep.Metric)
	assert.Equal(t, 255000.0+3*240000.0, rep.RawTotal)
	assert.Equal(t, 720000.0, rep.ExcludedTotal)
	assert.Equal(t, 255000.0, rep.MeaningfulTotal)
	assert.Equal(t, 255000.0, rep.ProcessedTotal)
	assert.Zero(t, rep.Difference)
	assert.Equal(t, fixed, rep.CheckedAt)
	require.Len(t, audit.reports, 1)
	assert.Equal(t, rep, audit.reports[0])
}

func TestValidate_DetectsDoubleCounting(t *testing.T) {
	raw := scenarioRows()
	// a broken cleaner that keeps a summary row
	clean := append(classify.New(classify.DefaultRules()).Clean(raw), raw[9])

	v := NewValidator(classify.DefaultRules())
	rep, ok := v.Validate(context.Background(), "", raw, clean, model.MetricValue)
	assert.False(t, ok)
	assert.Equal(t, "FAILURE", rep.Status())
	assert.InDelta(t, 240000, rep.Difference, 1e-9)
}

func TestValidate_DetectsDataLoss(t *testing.T) {
	raw := scenarioRows()
	clean := classify.New(classify.DefaultRules()).Clean(raw)[1:]

	v := NewValidator(classify.DefaultRules())
	_, ok := v.Validate(context.Background(), "", raw, clean, model.MetricValue)
	assert.False(t, ok)
}

func TestValidate_Tolerance(t *testing.T) {
	raw := []model.SourceRow{{Label: "A", SaleValue: 100000}}
	clean := []model.SourceRow{{Label: "A", SaleValue: 100005}}

	_, ok := NewValidator(classify.DefaultRules()).Validate(context.Background(), "", raw, clean, model.MetricValue)
	assert.True(t, ok, "0.005% is inside the default 0.01%")

	_, ok = NewValidator(classify.DefaultRules(), WithTolerance(0)).Validate(context.Background(), "", raw, clean, model.MetricValue)
	assert.False(t, ok)

	v := NewValidator(classify.DefaultRules(), WithTolerance(-1))
	assert.Equal(t, DefaultTolerance, v.Tolerance())
}

func TestValidate_ZeroTotals(t *testing.T) {
	v := NewValidator(classify.DefaultRules())

	_, ok := v.Validate(context.Background(), "", nil, nil, model.MetricUnit)
	assert.True(t, ok, "both zero passes")

	raw := []model.SourceRow{{Label: "A", SaleUnits: 5}, {Label: "B", SaleUnits: -5}}
	_, ok = v.Validate(context.Background(), "", raw, raw, model.MetricUnit)
	assert.True(t, ok)

	_, ok = v.Validate(context.Background(), "", raw, raw[:1], model.MetricUnit)
	assert.False(t, ok, "meaningful 0 but processed 5")
}

func TestValidate_NegativeTotals(t *testing.T) {
	raw := []model.SourceRow{{Label: "RETURNS", SaleValue: -15000}, {Label: "A", SaleValue: 5000}}
	v := NewValidator(classify.DefaultRules())

	rep, ok := v.Validate(context.Background(), "", raw, raw, model.MetricValue)
	assert.True(t, ok)
	assert.Equal(t, -10000.0, rep.MeaningfulTotal)
}

func TestValidate_AuditErrorDoesNotGate(t *testing.T) {
	audit := &memAudit{err: errors.New("disk full")}
	v := NewValidator(classify.DefaultRules(), WithAudit(audit))

	_, ok := v.Validate(context.Background(), "", nil, nil, model.MetricValue)
	assert.True(t, ok)
	assert.Len(t, audit.reports, 1)
}

func TestValidate_SymmetryProperty(t *testing.T) {
	f := gofakeit.New(2026)
	labels := []string{"DYNAMIC", "ACHIEVERS", "All", "Concord Summary", "Total", "PASSIONATE"}
	regions := []string{"LAHORE", "All Regions", "KARACHI"}
	rules := classify.DefaultRules()
	cleaner := classify.New(rules)

	for i := 0; i < 100; i++ {
		raw := make([]model.SourceRow, f.Number(0, 60))
		for j := range raw {
			raw[j] = model.SourceRow{
				Label:     f.RandomString(labels),
				Region:    f.RandomString(regions),
				SaleValue: f.Float64Range(-50000, 500000),
				SaleUnits: float64(f.Number(-10, 1000)),
			}
		}
		clean := cleaner.Clean(raw)

		for _, tol := range []float64{0, DefaultTolerance, 1} {
			v := NewValidator(rules, WithTolerance(tol))
			for _, m := range model.Metrics {
				_, ok := v.Validate(context.Background(), "", raw, clean, m)
				assert.True(t, ok, "iteration %d tolerance %v metric %s", i, tol, m)
			}
		}
	}
}

func TestNoDoubleCountingProperty(t *testing.T) {
	f := gofakeit.New(11)
	cleaner := classify.New(classify.DefaultRules())

	for i := 0; i < 100; i++ {
		raw := make([]model.SourceRow, f.Number(1, 40))
		hasRollup := false
		for j := range raw {
			label := f.RandomString([]string{"DYNAMIC", "CONCORD", "Total"})
			raw[j] = model.SourceRow{Label: label, SaleValue: f.Float64Range(0, 1000)}
			if label == "Total" && raw[j].SaleValue > 0 {
				hasRollup = true
			}
		}
		clean := cleaner.Clean(raw)

		rawSum, cleanSum := sum(raw), sum(clean)
		assert.LessOrEqual(t, cleanSum, rawSum)
		if !hasRollup {
			assert.Equal(t, rawSum, cleanSum)
		}
	}
}

func sum(rows []model.SourceRow) float64 {
	var s float64
	for _, r := range rows {
		s += r.SaleValue
	}
	return s
}

func TestCheck_AllMetrics(t *testing.T) {
	raw := scenarioRows()
	clean := classify.New(classify.DefaultRules()).Clean(raw)
	audit := &memAudit{}
	v := NewValidator(classify.DefaultRules(), WithAudit(audit))

	reports, err := v.Check(context.Background(), "r", raw, clean, model.Metrics...)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	assert.Len(t, audit.reports, 2)
}

func TestCheck_FailureWrapsSentinel(t *testing.T) {
	raw := scenarioRows()
	clean := raw // rollups not removed
	audit := &memAudit{}
	v := NewValidator(classify.DefaultRules(), WithAudit(audit))

	reports, err := v.Check(context.Background(), "r", raw, clean, model.Metrics...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrParityFailed))
	assert.Len(t, reports, 2)
	assert.Len(t, audit.reports, 2, "every metric audited")
}

func TestFileAuditLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "validation_log.txt")
	l := NewFileAuditLog(path)

	rep := model.ParityReport{
		RunID:           "abc",
		Metric:          model.MetricValue,
		RawTotal:        975000,
		ExcludedTotal:   720000,
		MeaningfulTotal: 255000,
		ProcessedTotal:  255000,
		Passed:          true,
		CheckedAt:       fixed,
	}
	require.NoError(t, l.Append(context.Background(), rep))
	rep.Metric = model.MetricUnit
	rep.Passed = false
	require.NoError(t, l.Append(context.Background(), rep))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Equal(t, 2, strings.Count(text, "--- 2026-02-17 20:00:00 ---"))
	assert.Contains(t, text, "[VALUE] Binary Parity Check:")
	assert.Contains(t, text, "[UNIT] Binary Parity Check:")
	assert.Contains(t, text, "Final Integrity Status:      SUCCESS")
	assert.Contains(t, text, "Final Integrity Status:      FAILURE")
	assert.Contains(t, text, "Run:                         abc")
}

func TestMultiAudit(t *testing.T) {
	a, b := &memAudit{}, &memAudit{err: errors.New("boom")}
	m := MultiAudit{a, nil, b}

	err := m.Append(context.Background(), model.ParityReport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, a.reports, 1)
	assert.Len(t, b.reports, 1)
}

func TestVerifyProRata(t *testing.T) {
	p := projection.Period{Elapsed: 14, Length: 28, NormalEnd: 23}
	rows := []model.SourceRow{{Team: "DYNAMIC", SaleValue: 1000, TargetValue: 4000}}
	d := target.Derive(rows, model.MetricValue, target.Options{})
	tables := projection.AggregateAll(rows, d, p, nil)

	assert.Empty(t, VerifyProRata(tables, p))

	tables[model.CategoryTeam][0].Difference += 5
	mm := VerifyProRata(tables, p)
	require.Len(t, mm, 1)
	assert.Equal(t, "DYNAMIC", mm[0].Name)
	assert.InDelta(t, -1000, mm[0].Want, 1e-9)
}
