package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/variance-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "variance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "downloads/sales.xlsx")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "downloads/sales.xlsx", got.Source)
	assert.Equal(t, model.RunStatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, s.FinishRun(ctx, run.ID, model.RunStatusAborted, "parity failed"))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusAborted, got.Status)
	assert.Equal(t, "parity failed", got.Error)
	require.NotNil(t, got.FinishedAt)
	assert.False(t, got.FinishedAt.Before(got.StartedAt))
}

func TestSQLite_FinishRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	err := s.FinishRun(context.Background(), "missing", model.RunStatusComplete, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, src := range []string{"a.xlsx", "b.xlsx", "c.xlsx"} {
		_, err := s.CreateRun(ctx, src)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestSQLite_ParityAudit(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	checked := time.Date(2026, time.February, 17, 20, 0, 0, 0, time.UTC)

	first := model.ParityReport{
		RunID: "r1", Metric: model.MetricValue,
		RawTotal: 975000, ExcludedTotal: 720000, MeaningfulTotal: 255000, ProcessedTotal: 255000,
		Tolerance: 0.0001, Passed: true, CheckedAt: checked,
	}
	second := first
	second.Metric = model.MetricUnit
	second.Passed = false
	second.Difference = 12.5

	audit := ParityAudit{Store: s}
	require.NoError(t, audit.Append(ctx, first))
	require.NoError(t, audit.Append(ctx, second))

	reps, err := s.ListParity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reps, 2)

	assert.Equal(t, model.MetricUnit, reps[0].Metric, "newest first")
	assert.False(t, reps[0].Passed)
	assert.Equal(t, 12.5, reps[0].Difference)

	assert.Equal(t, "r1", reps[1].RunID)
	assert.True(t, reps[1].Passed)
	assert.Equal(t, 255000.0, reps[1].MeaningfulTotal)
	assert.True(t, checked.Equal(reps[1].CheckedAt))

	reps, err = s.ListParity(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, reps, 1)
}

func TestSQLite_Snapshot(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rows := []model.SourceRow{
		{Line: 4, Label: "DYNAMIC", Team: "DYNAMIC", Brand: "VONZ", SaleValue: 1000, TargetValue: 1200},
		{Line: 5, Label: "CONCORD", Team: "CONCORD", Brand: "ZEST", SaleUnits: 10},
		{Line: 5, Label: "CONCORD", Team: "CONCORD", Brand: "ZEST", SaleUnits: 10},
	}

	n, err := s.SaveSnapshot(ctx, "r1", rows)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// replaying is idempotent
	_, err = s.SaveSnapshot(ctx, "r1", rows)
	require.NoError(t, err)

	count, err := s.CountSnapshot(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = s.CountSnapshot(ctx, "other")
	require.NoError(t, err)
	assert.Zero(t, count)

	n, err = s.SaveSnapshot(ctx, "r2", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
