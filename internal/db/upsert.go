package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert operation.
type UpsertConfig struct {
	Table        string   // target table (e.g., "nbi.bridges")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns, empty = DO NOTHING
	BatchSize    int      // rows per COPY into the temp table; 0 = all at once
}

// BulkUpsert loads rows through a temp table and merges them into cfg.Table
// with INSERT ... ON CONFLICT in a single transaction. The temp table is
// dropped on commit.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx)

	tempTable := fmt.Sprintf("_tmp_upsert_%s", strings.ReplaceAll(cfg.Table, ".", "_"))

	// Create temp table with same structure as target
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		sanitizeTable(cfg.Table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	for _, batch := range batches(rows, cfg.BatchSize) {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, pgx.CopyFromRows(batch)); err != nil {
			return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
		}
	}

	tag, err := tx.Exec(ctx, upsertSQL(cfg, tempTable))
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}

	return tag.RowsAffected(), nil
}

// upsertSQL builds the INSERT ... SELECT ... ON CONFLICT statement that moves
// rows from the temp table into the target.
func upsertSQL(cfg UpsertConfig, tempTable string) string {
	colList := quoteAndJoin(cfg.Columns)
	action := "DO NOTHING"
	if cols := updateColumns(cfg); len(cols) > 0 {
		setClauses := make([]string, len(cols))
		for i, col := range cols {
			id := pgx.Identifier{col}.Sanitize()
			setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", id, id)
		}
		action = "DO UPDATE SET " + strings.Join(setClauses, ", ")
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) %s",
		sanitizeTable(cfg.Table),
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		quoteAndJoin(cfg.ConflictKeys),
		action,
	)
}

// updateColumns returns cfg.UpdateCols, or every non-key column when nil.
func updateColumns(cfg UpsertConfig) []string {
	if cfg.UpdateCols != nil {
		return cfg.UpdateCols
	}
	keys := make(map[string]bool, len(cfg.ConflictKeys))
	for _, k := range cfg.ConflictKeys {
		keys[k] = true
	}
	var cols []string
	for _, c := range cfg.Columns {
		if !keys[c] {
			cols = append(cols, c)
		}
	}
	return cols
}

// batches splits rows into slices of at most size rows.
func batches(rows [][]any, size int) [][][]any {
	if size <= 0 || size >= len(rows) {
		return [][][]any{rows}
	}
	out := make([][][]any, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}

// sanitizeTable handles schema-qualified table names like "nbi.bridges".
func sanitizeTable(table string) string {
	return tableIdentifier(table).Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
