// Package db provides Postgres helpers for bulk COPY and upsert.
package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFrom bulk-inserts rows using the COPY protocol. table may be
// schema-qualified ("nbi.bridges"). pool may be a pgx.Tx.
func CopyFrom(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := pool.CopyFrom(ctx, tableIdentifier(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", table)
	}

	return n, nil
}

func tableIdentifier(table string) pgx.Identifier {
	schema, name, ok := strings.Cut(table, ".")
	if !ok {
		return pgx.Identifier{table}
	}
	return pgx.Identifier{schema, name}
}
