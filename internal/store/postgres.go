package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/variance-cli/internal/db"
	"github.com/sells-group/variance-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS parity_audit (
	id               BIGSERIAL PRIMARY KEY,
	run_id           TEXT NOT NULL DEFAULT '',
	metric           TEXT NOT NULL,
	raw_total        DOUBLE PRECISION NOT NULL,
	excluded_total   DOUBLE PRECISION NOT NULL,
	meaningful_total DOUBLE PRECISION NOT NULL,
	processed_total  DOUBLE PRECISION NOT NULL,
	difference       DOUBLE PRECISION NOT NULL,
	tolerance        DOUBLE PRECISION NOT NULL,
	passed           BOOLEAN NOT NULL,
	checked_at       TIMESTAMPTZ NOT NULL
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
	sale_units   DOUBLE PRECISION NOT NULL,
	sale_value   DOUBLE PRECISION NOT NULL,
	prev_units   DOUBLE PRECISION NOT NULL,
	prev_value   DOUBLE PRECISION NOT NULL,
	target_units DOUBLE PRECISION NOT NULL,
	target_value DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_parity_audit_run_id ON parity_audit(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, source string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, source, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, source, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Source:    source,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(status), errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var status string

	err := s.pool.QueryRow(ctx,
		`SELECT id, source, status, error, started_at, finished_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &r.Source, &status, &r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, error, started_at, finished_at FROM runs
		 ORDER BY started_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		if err := rows.Scan(&r.ID, &r.Source, &status, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) AppendParity(ctx context.Context, rep model.ParityReport) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO parity_audit (run_id, metric, raw_total, excluded_total, meaningful_total,
		 processed_total, difference, tolerance, passed, checked_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rep.RunID, string(rep.Metric), rep.RawTotal, rep.ExcludedTotal, rep.MeaningfulTotal,
		rep.ProcessedTotal, rep.Difference, rep.Tolerance, rep.Passed, rep.CheckedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: append parity")
}

func (s *PostgresStore) ListParity(ctx context.Context, limit int) ([]model.ParityReport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, metric, raw_total, excluded_total, meaningful_total, processed_total,
		 difference, tolerance, passed, checked_at
		 FROM parity_audit ORDER BY id DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list parity")
	}
	defer rows.Close()

	var out []model.ParityReport
	for rows.Next() {
		var p model.ParityReport
		var metric string
		if err := rows.Scan(&p.RunID, &metric, &p.RawTotal, &p.ExcludedTotal, &p.MeaningfulTotal,
			&p.ProcessedTotal, &p.Difference, &p.Tolerance, &p.Passed, &p.CheckedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan parity")
		}
		p.Metric = model.Metric(metric)
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list parity iterate")
}

// SaveSnapshot upserts the clean rows of runID through a COPY-staged
// temp table.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, runID string, rows []model.SourceRow) (int64, error) {
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = snapshotRow(runID, i, r)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "run_rows",
		Columns:      snapshotColumns,
		ConflictKeys: []string{"run_id", "seq"},
	}, values)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save snapshot %s", runID)
	}
	return n, nil
}

func (s *PostgresStore) CountSnapshot(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM run_rows WHERE run_id = $1`, runID).Scan(&n)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return 0, eris.Wrap(err, "postgres: count snapshot")
	}
	return n, nil
}
