package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/variance-cli/internal/model"
)

type mockSource struct {
	runs       []model.Run
	reports    []model.ParityReport
	runErr     error
	parityErr  error
	runLimit   int
	reportsLim int
}

func (m *mockSource) ListRuns(_ context.Context, limit int) ([]model.Run, error) {
	m.runLimit = limit
	return m.runs, m.runErr
}

func (m *mockSource) ListParity(_ context.Context, limit int) ([]model.ParityReport, error) {
	m.reportsLim = limit
	return m.reports, m.parityErr
}

func TestCollector_Collect(t *testing.T) {
	older := time.Date(2026, time.February, 15, 20, 5, 0, 0, time.UTC)
	newer := time.Date(2026, time.February, 16, 20, 5, 0, 0, time.UTC)

	src := &mockSource{
		runs: []model.Run{
			{Status: model.RunStatusComplete, FinishedAt: &newer},
			{Status: model.RunStatusComplete, FinishedAt: &older},
			{Status: model.RunStatusAborted},
			{Status: model.RunStatusFailed},
			{Status: model.RunStatusRunning},
		},
		reports: []model.ParityReport{{Passed: true}, {Passed: false}, {Passed: true}},
	}

	snap, err := NewCollector(src, 5).Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, src.runLimit)
	assert.Equal(t, 10, src.reportsLim)
	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 2, snap.Complete)
	assert.Equal(t, 1, snap.Aborted)
	assert.Equal(t, 1, snap.Failed)
	assert.Equal(t, 1, snap.Running)
	assert.InDelta(t, 0.5, snap.FailureRate, 1e-12)
	assert.Equal(t, 3, snap.ParityChecks)
	assert.Equal(t, 1, snap.ParityFailures)
	assert.Equal(t, newer, snap.LastSuccess)
}

func TestCollector_Empty(t *testing.T) {
	snap, err := NewCollector(&mockSource{}, 0).Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Total)
	assert.Zero(t, snap.FailureRate)
}

func TestCollector_Errors(t *testing.T) {
	_, err := NewCollector(&mockSource{runErr: errors.New("db down")}, 3).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect runs")

	_, err = NewCollector(&mockSource{parityErr: errors.New("db down")}, 3).Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect parity")
}
