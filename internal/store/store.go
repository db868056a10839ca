// Package store persists run records, parity audit records and clean-row
// snapshots in SQLite or PostgreSQL.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/model"
)

// DefaultListLimit caps list queries without an explicit limit.
const DefaultListLimit = 100

// Store defines the persistence interface of the variance pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, source string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Parity audit trail
	AppendParity(ctx context.Context, rep model.ParityReport) error
	ListParity(ctx context.Context, limit int) ([]model.ParityReport, error)

	// Clean-row snapshots
	SaveSnapshot(ctx context.Context, runID string, rows []model.SourceRow) (int64, error)
	CountSnapshot(ctx context.Context, runID string) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend. An empty sqlite DSN falls back to
// "variance.db".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = "variance.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		if dsn == "" {
			return nil, eris.New("store: postgres requires store.database_url")
		}
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}

// ParityAudit adapts a Store to the parity audit sink interface.
type ParityAudit struct {
	Store Store
}

// Append records rep in the store.
func (a ParityAudit) Append(ctx context.Context, rep model.ParityReport) error {
	return a.Store.AppendParity(ctx, rep)
}

var snapshotColumns = []string{
	"run_id", "seq", "line", "label", "team", "brand", "product", "code", "zone", "region",
	"sale_units", "sale_value", "prev_units", "prev_value", "target_units", "target_value",
}

// snapshotRow flattens r; seq is the row's position in the clean set.
func snapshotRow(runID string, seq int, r model.SourceRow) []any {
	return []any{
		runID, seq, r.Line, r.Label, r.Team, r.Brand, r.Product, r.Code, r.Zone, r.Region,
		r.SaleUnits, r.SaleValue, r.PrevUnits, r.PrevValue, r.TargetUnits, r.TargetValue,
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
