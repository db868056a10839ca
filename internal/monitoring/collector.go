package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/model"
)

// Snapshot is a point-in-time view of recent run health.
type Snapshot struct {
	Total          int       `json:"total"`
	Running        int       `json:"running"`
	Complete       int       `json:"complete"`
	Aborted        int       `json:"aborted"`
	Failed         int       `json:"failed"`
	FailureRate    float64   `json:"failure_rate"`
	ParityChecks   int       `json:"parity_checks"`
	ParityFailures int       `json:"parity_failures"`
	LastSuccess    time.Time `json:"last_success,omitempty"`
	CollectedAt    time.Time `json:"collected_at"`
}

// RunSource is the subset of the store the collector reads.
type RunSource interface {
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
	ListParity(ctx context.Context, limit int) ([]model.ParityReport, error)
}

// Collector gathers run health from the store.
type Collector struct {
	src      RunSource
	lookback int
}

// NewCollector reads the last lookback runs (default 10).
func NewCollector(src RunSource, lookback int) *Collector {
	if lookback <= 0 {
		lookback = 10
	}
	return &Collector{src: src, lookback: lookback}
}

// Collect builds a snapshot. Parity records are read for twice the run
// window since every run checks both metrics.
func (c *Collector) Collect(ctx context.Context) (*Snapshot, error) {
	runs, err := c.src.ListRuns(ctx, c.lookback)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect runs")
	}
	reports, err := c.src.ListParity(ctx, c.lookback*len(model.Metrics))
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect parity")
	}

	snap := &Snapshot{Total: len(runs), CollectedAt: time.Now().UTC()}
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusRunning:
			snap.Running++
		case model.RunStatusComplete:
			snap.Complete++
			if r.FinishedAt != nil && r.FinishedAt.After(snap.LastSuccess) {
				snap.LastSuccess = *r.FinishedAt
			}
		case model.RunStatusAborted:
			snap.Aborted++
		case model.RunStatusFailed:
			snap.Failed++
		}
	}
	if finished := snap.Complete + snap.Aborted + snap.Failed; finished > 0 {
		snap.FailureRate = float64(snap.Aborted+snap.Failed) / float64(finished)
	}

	snap.ParityChecks = len(reports)
	for _, p := range reports {
		if !p.Passed {
			snap.ParityFailures++
		}
	}
	return snap, nil
}
