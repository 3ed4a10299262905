package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresMigration(t *testing.T) {
	sql := postgresMigration()
	assert.Contains(t, sql, "CREATE SCHEMA IF NOT EXISTS nbi")
	assert.Contains(t, sql, `"structure_number" TEXT NOT NULL`)
	assert.Contains(t, sql, `"deck_condition" INTEGER,`)
	assert.Contains(t, sql, "geom geometry(Point, 4326)")
	assert.Contains(t, sql, "PRIMARY KEY (year, state_code, structure_number)")
	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS nbi.run_log")
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE EXTENSION IF NOT EXISTS postgis`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveBridges(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_nbi_bridges"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_nbi_bridges"}, pgColumns()).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "nbi"."bridges" .* ON CONFLICT \("year", "state_code", "structure_number"\) DO UPDATE`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := s.SaveBridges(context.Background(), 2018, sampleBridges())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveBridges_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin().WillReturnError(fmt.Errorf("connection refused"))

	_, err := s.SaveBridges(context.Background(), 2018, sampleBridges())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save bridges for 2018")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceBridges(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	s.batchSize = 1

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM nbi.bridges WHERE year = \$1`).
		WithArgs(2018).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectCopyFrom(pgx.Identifier{"nbi", "bridges"}, pgColumns()).WillReturnResult(1)
	mock.ExpectCopyFrom(pgx.Identifier{"nbi", "bridges"}, pgColumns()).WillReturnResult(1)
	mock.ExpectCommit()

	n, err := s.ReplaceBridges(context.Background(), 2018, sampleBridges())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRows_Geometry(t *testing.T) {
	rows, err := pgRows(sampleBridges())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	cols := pgColumns()
	require.Len(t, rows[0], len(cols))
	assert.Equal(t, "geom", cols[len(cols)-1])
	assert.IsType(t, []byte{}, rows[0][len(cols)-1])
	assert.Nil(t, rows[1][len(cols)-1])
}

func TestPostgresStore_CountBridges(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM nbi.bridges WHERE year = \$1`).
		WithArgs(2017).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(611845)))

	n, err := s.CountBridges(context.Background(), 2017)
	require.NoError(t, err)
	assert.Equal(t, int64(611845), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StartRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO nbi.run_log`).
		WithArgs(pgxmock.AnyArg(), 2007, "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.StartRun(context.Background(), 2007)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2007, run.Year)
	assert.Equal(t, RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE nbi.run_log SET status = \$1, row_count = \$2`).
		WithArgs("complete", int64(42), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteRun(context.Background(), "run-1", 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE nbi.run_log`).
		WithArgs("complete", int64(1), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "missing", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE nbi.run_log SET status = \$1, error = \$2`).
		WithArgs("failed", "geocodes: duplicate", pgxmock.AnyArg(), "run-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailRun(context.Background(), "run-2", "geocodes: duplicate"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, year, status, row_count, error, started_at, finished_at FROM nbi.run_log WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM nbi.run_log WHERE 1=1 AND year = \$1 AND status = \$2 ORDER BY started_at DESC LIMIT \$3`).
		WithArgs(2017, "failed", 100).
		WillReturnError(fmt.Errorf("timeout"))

	_, err := s.ListRuns(context.Background(), RunFilter{Year: 2017, Status: RunStatusFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list runs")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChunk(t *testing.T) {
	rows := [][]any{{1}, {2}, {3}}
	assert.Len(t, chunk(rows, 2), 2)
	assert.Len(t, chunk(rows, 3), 1)
	assert.Empty(t, chunk(nil, 2))
}

func TestPgColumns(t *testing.T) {
	cols := pgColumns()
	assert.Equal(t, len(nbi.Columns())+1, len(cols))
	assert.Equal(t, nbi.Columns(), cols[:len(cols)-1])
}
