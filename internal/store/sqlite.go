package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/variance-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS parity_audit (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT NOT NULL DEFAULT '',
	metric           TEXT NOT NULL,
	raw_total        REAL NOT NULL,
	excluded_total   REAL NOT NULL,
	meaningful_total REAL NOT NULL,
	processed_total  REAL NOT NULL,
	difference       REAL NOT NULL,
	tolerance        REAL NOT NULL,
	passed           INTEGER NOT NULL,
	checked_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS run_rows (
	run_id       TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	line         INTEGER NOT NULL,
	label        TEXT NOT NULL,
	team         TEXT NOT NULL,
	brand        TEXT NOT NULL,
	product      TEXT NOT NULL,
	code         TEXT NOT NULL,
	zone         TEXT NOT NULL,
	region       TEXT NOT NULL,
	sale_units   REAL NOT NULL,
	sale_value   REAL NOT NULL,
	prev_units   REAL NOT NULL,
	prev_value   REAL NOT NULL,
	target_units REAL NOT NULL,
	target_value REAL NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_parity_audit_run_id ON parity_audit(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		id, source, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, status, error, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, error, started_at, finished_at FROM runs
		 ORDER BY started_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) AppendParity(ctx context.Context, rep model.ParityReport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parity_audit (run_id, metric, raw_total, excluded_total, meaningful_total,
		 processed_total, difference, tolerance, passed, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.RunID, string(rep.Metric), rep.RawTotal, rep.ExcludedTotal, rep.MeaningfulTotal,
		rep.ProcessedTotal, rep.Difference, rep.Tolerance, rep.Passed, rep.CheckedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: append parity")
}

func (s *SQLiteStore) ListParity(ctx context.Context, limit int) ([]model.ParityReport, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, metric, raw_total, excluded_total, meaningful_total, processed_total,
		 difference, tolerance, passed, checked_at
		 FROM parity_audit ORDER BY id DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list parity")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.ParityReport
	for rows.Next() {
		var p model.ParityReport
		if err := rows.Scan(&p.RunID, &p.Metric, &p.RawTotal, &p.ExcludedTotal, &p.MeaningfulTotal,
			&p.ProcessedTotal, &p.Difference, &p.Tolerance, &p.Passed, &p.CheckedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan parity")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list parity iterate")
}

// SaveSnapshot replaces the snapshot of runID with rows in one transaction.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, rows []model.SourceRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin snapshot")
	}
	defer tx.Rollback() //nolint:errcheck

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(snapshotColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO run_rows (`+strings.Join(snapshotColumns, ", ")+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare snapshot")
	}
	defer stmt.Close() //nolint:errcheck

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, snapshotRow(runID, i, r)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert snapshot row %d", r.Line)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit snapshot")
	}
	return int64(len(rows)), nil
}

func (s *SQLiteStore) CountSnapshot(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM run_rows WHERE run_id = ?`, runID).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count snapshot")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Source, &r.Status, &r.Error, &r.StartedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
