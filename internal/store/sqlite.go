package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas are applied to every connection the driver opens.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// sqliteDSN appends the connection pragmas to a database path.
func sqliteDSN(path string) string {
	var q strings.Builder
	for i, p := range sqlitePragmas {
		if i > 0 {
			q.WriteByte('&')
		}
		q.WriteString("_pragma=")
		q.WriteString(p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q.String()
}

// NewSQLite opens a SQLite database at the given path in WAL mode. The pool
// holds a single connection, so concurrent year writes queue behind each
// other's transaction instead of failing with SQLITE_BUSY.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: connect")
	}
	return &SQLiteStore{db: db}, nil
}

func sqliteMigration() string {
	var cols strings.Builder
	for _, c := range nbi.Columns() {
		fmt.Fprintf(&cols, "\t%s %s,\n", c, columnType(c))
	}

	return `
CREATE TABLE IF NOT EXISTS bridges (
` + cols.String() + `	loaded_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (year, state_code, structure_number)
);

CREATE INDEX IF NOT EXISTS idx_bridges_combined_fips ON bridges(year, combined_fips);
CREATE INDEX IF NOT EXISTS idx_bridges_condition ON bridges(year, bridge_condition);

CREATE TABLE IF NOT EXISTS run_log (
	id          TEXT PRIMARY KEY,
	year        INTEGER NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	row_count   INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_run_log_year ON run_log(year, started_at);
`
}

// sqliteUpsert is the per-row statement used by SaveBridges.
func sqliteUpsert() string {
	cols := nbi.Columns()
	keys := make(map[string]bool, len(bridgeKey))
	for _, k := range bridgeKey {
		keys[k] = true
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	var set []string
	for _, c := range cols {
		if !keys[c] {
			set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	set = append(set, "loaded_at = datetime('now')")

	return fmt.Sprintf(
		"INSERT INTO bridges (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(cols, ", "),
		placeholders,
		strings.Join(bridgeKey, ", "),
		strings.Join(set, ", "),
	)
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration())
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBridges upserts records in a single transaction.
func (s *SQLiteStore) SaveBridges(ctx context.Context, year int, records []nbi.CleanRecord) (int64, error) {
	return s.writeBridges(ctx, year, records, false)
}

// ReplaceBridges deletes the year's bridges and inserts records in a single
// transaction.
func (s *SQLiteStore) ReplaceBridges(ctx context.Context, year int, records []nbi.CleanRecord) (int64, error) {
	return s.writeBridges(ctx, year, records, true)
}

func (s *SQLiteStore) writeBridges(ctx context.Context, year int, records []nbi.CleanRecord, replace bool) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bridges WHERE year = ?`, year); err != nil {
			return 0, eris.Wrapf(err, "sqlite: delete bridges for %d", year)
		}
	}

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bridge upsert")
	}
	defer stmt.Close()

	var n int64
	for i := range records {
		if _, err := stmt.ExecContext(ctx, bridgeRow(&records[i])...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert bridge %s", records[i].StructureNumber)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return n, nil
}

func (s *SQLiteStore) CountBridges(ctx context.Context, year int) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM bridges WHERE year = ?`, year).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count bridges for %d", year)
}

func (s *SQLiteStore) StartRun(ctx context.Context, year int) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_log (id, year, status, started_at) VALUES (?, ?, ?, ?)`,
		id, year, string(RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for %d", year)
	}

	return &Run{ID: id, Year: year, Status: RunStatusRunning, StartedAt: now}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, rows int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_log SET status = ?, row_count = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusComplete), rows, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_log SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, year, status, row_count, error, started_at, finished_at FROM run_log WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrRunNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, year, status, row_count, error, started_at, finished_at FROM run_log WHERE 1=1`
	var args []any

	if filter.Year != 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "sqlite: run %s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var status string
	var errMsg sql.NullString
	var finished sql.NullTime

	if err := row.Scan(&r.ID, &r.Year, &status, &r.Rows, &errMsg, &r.StartedAt, &finished); err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	r.Error = errMsg.String
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
