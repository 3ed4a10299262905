package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/fagan2888/bridge-data/internal/config"
	"github.com/fagan2888/bridge-data/internal/store"
)

// initStore opens and migrates the configured backend.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	if sc.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(sc.SQLitePath), 0o755); err != nil {
			return nil, eris.Wrap(err, "create sqlite directory")
		}
	}

	st, err := store.Open(ctx, store.Options{
		Driver:      sc.Driver,
		DatabaseURL: sc.DatabaseURL,
		SQLitePath:  sc.SQLitePath,
		Pool:        &store.PoolConfig{MaxConns: sc.MaxConns, MinConns: sc.MinConns},
		BatchSize:   sc.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
