// Package store persists cleaned bridge records and a per-year run log in
// Postgres or SQLite.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// RunStatus is the lifecycle state of a run log entry.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one processing attempt for an inventory year.
type Run struct {
	ID         string     `json:"id"`
	Year       int        `json:"year"`
	Status     RunStatus  `json:"status"`
	Rows       int64      `json:"rows"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Year   int       `json:"year,omitempty"`
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
}

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = eris.New("store: run not found")

// Store defines persistence for cleaned bridge inventories.
type Store interface {
	// Bridges
	SaveBridges(ctx context.Context, year int, records []nbi.CleanRecord) (int64, error)
	ReplaceBridges(ctx context.Context, year int, records []nbi.CleanRecord) (int64, error)
	CountBridges(ctx context.Context, year int) (int64, error)

	// Run log
	StartRun(ctx context.Context, year int) (*Run, error)
	CompleteRun(ctx context.Context, runID string, rows int64) error
	FailRun(ctx context.Context, runID string, msg string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver      string // "postgres" or "sqlite"
	DatabaseURL string
	SQLitePath  string
	Pool        *PoolConfig
	BatchSize   int
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "postgres", "":
		if opts.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires a database URL")
		}
		s, err := NewPostgres(ctx, opts.DatabaseURL, opts.Pool)
		if err != nil {
			return nil, err
		}
		s.batchSize = opts.BatchSize
		return s, nil
	case "sqlite":
		if opts.SQLitePath == "" {
			return nil, eris.New("store: sqlite driver requires a path")
		}
		return NewSQLite(opts.SQLitePath)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
}
