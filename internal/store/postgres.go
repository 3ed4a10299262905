package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fagan2888/bridge-data/internal/db"
	"github.com/fagan2888/bridge-data/internal/nbi"
)

const (
	pgBridgesTable = "nbi.bridges"
	pgRunLogTable  = "nbi.run_log"

	defaultBatchSize = 50000
)

// PostgresStore implements Store using pgxpool. Bridges go to nbi.bridges
// with an EWKB point in the geom column.
type PostgresStore struct {
	pool      db.Pool
	closeFn   func()
	batchSize int
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

	maxConns := int32(10)
	minConns := int32(2)
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

// postgresMigration creates the schema, tables and indexes. The bridges
// columns follow nbi.Columns.
func postgresMigration() string {
	var cols strings.Builder
	for _, c := range nbi.Columns() {
		notNull := ""
		for _, k := range bridgeKey {
			if c == k {
				notNull = " NOT NULL"
			}
		}
		fmt.Fprintf(&cols, "\t%s %s%s,\n", pgx.Identifier{c}.Sanitize(), columnType(c), notNull)
	}

	return `
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS nbi;

CREATE TABLE IF NOT EXISTS nbi.bridges (
` + cols.String() + `	geom geometry(Point, 4326),
	loaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (year, state_code, structure_number)
);

CREATE INDEX IF NOT EXISTS idx_bridges_combined_fips ON nbi.bridges(year, combined_fips);
CREATE INDEX IF NOT EXISTS idx_bridges_condition ON nbi.bridges(year, bridge_condition);
CREATE INDEX IF NOT EXISTS idx_bridges_geom ON nbi.bridges USING GIST (geom);

CREATE TABLE IF NOT EXISTS nbi.run_log (
	id          TEXT PRIMARY KEY,
	year        INTEGER NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	row_count   BIGINT NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_run_log_year ON nbi.run_log(year, started_at DESC);
`
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration())
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// pgColumns is nbi.Columns plus the geometry column.
func pgColumns() []string {
	return append(nbi.Columns(), "geom")
}

func pgRows(records []nbi.CleanRecord) ([][]any, error) {
	rows := make([][]any, len(records))
	for i := range records {
		r := &records[i]
		geomBytes, err := PointEWKB(r.Latitude, r.Longitude)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: bridge %s", r.StructureNumber)
		}
		var g any
		if geomBytes != nil {
			g = geomBytes
		}
		rows[i] = append(bridgeRow(r), g)
	}
	return rows, nil
}

func (s *PostgresStore) batch() int {
	if s.batchSize > 0 {
		return s.batchSize
	}
	return defaultBatchSize
}

// SaveBridges upserts records into nbi.bridges. Rows for the year that are
// not in records are left in place.
func (s *PostgresStore) SaveBridges(ctx context.Context, year int, records []nbi.CleanRecord) (int64, error) {
	rows, err := pgRows(dedupeByKey(records))
	if err != nil {
		return 0, err
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        pgBridgesTable,
		Columns:      pgColumns(),
		ConflictKeys: bridgeKey,
		BatchSize:    s.batch(),
	}, rows)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save bridges for %d", year)
	}

	zap.L().Debug("bridges upserted",
		zap.String("component", "store.postgres"),
		zap.Int("year", year),
		zap.Int64("rows", n),
	)
	return n, nil
}

// ReplaceBridges deletes every stored bridge for year and loads records with
// COPY, in one transaction.
func (s *PostgresStore) ReplaceBridges(ctx context.Context, year int, records []nbi.CleanRecord) (int64, error) {
	rows, err := pgRows(dedupeByKey(records))
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: replace bridges: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM nbi.bridges WHERE year = $1`, year); err != nil {
		return 0, eris.Wrapf(err, "postgres: delete bridges for %d", year)
	}

	var total int64
	for _, batch := range chunk(rows, s.batch()) {
		n, err := db.CopyFrom(ctx, tx, pgBridgesTable, pgColumns(), batch)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: replace bridges for %d", year)
		}
		total += n
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: replace bridges: commit tx")
	}
	return total, nil
}

func (s *PostgresStore) CountBridges(ctx context.Context, year int) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM nbi.bridges WHERE year = $1`, year).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: count bridges for %d", year)
	}
	return n, nil
}

func (s *PostgresStore) StartRun(ctx context.Context, year int) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO nbi.run_log (id, year, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, year, string(RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for %d", year)
	}

	return &Run{ID: id, Year: year, Status: RunStatusRunning, StartedAt: now}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, rows int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE nbi.run_log SET status = $1, row_count = $2, finished_at = $3 WHERE id = $4`,
		string(RunStatusComplete), rows, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "postgres: complete run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE nbi.run_log SET status = $1, error = $2, finished_at = $3 WHERE id = $4`,
		string(RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrRunNotFound, "postgres: fail run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, year, status, row_count, error, started_at, finished_at FROM nbi.run_log WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, year, status, row_count, error, started_at, finished_at FROM nbi.run_log WHERE 1=1`
	var args []any

	if filter.Year != 0 {
		args = append(args, filter.Year)
		query += fmt.Sprintf(` AND year = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row pgx.Row) (*Run, error) {
	var r Run
	var status string
	var errMsg *string
	if err := row.Scan(&r.ID, &r.Year, &status, &r.Rows, &errMsg, &r.StartedAt, &r.FinishedAt); err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

// chunk splits rows into slices of at most size rows.
func chunk(rows [][]any, size int) [][][]any {
	var out [][][]any
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}
