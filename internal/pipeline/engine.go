// Package pipeline runs the per-year bridge inventory cleaning jobs: load the
// county reference table once, then read, transform, write and optionally
// store each selected year.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fagan2888/bridge-data/internal/fips"
	"github.com/fagan2888/bridge-data/internal/geocodes"
	"github.com/fagan2888/bridge-data/internal/metrics"
	"github.com/fagan2888/bridge-data/internal/nbi"
	"github.com/fagan2888/bridge-data/internal/output"
	"github.com/fagan2888/bridge-data/internal/resilience"
	"github.com/fagan2888/bridge-data/internal/store"
)

// ManifestName is the manifest file written into the output directory.
const ManifestName = "manifest.yaml"

// Config holds the engine's fixed inputs.
type Config struct {
	GeocodesPath       string
	GeocodesHeaderRows int
	OutputDir          string
	Encoding           string
	Workers            int
	MetricsTextfile    string
	StoreRetry         resilience.RetryConfig // zero value = resilience defaults
}

// Engine orchestrates per-year cleaning runs.
type Engine struct {
	cfg     Config
	reg     *Registry
	store   store.Store // nil when persistence is not configured
	metrics *metrics.Collector
}

// RunOpts configures which years to process and how.
type RunOpts struct {
	Years     []int         // restrict to these years; empty = all registered
	Format    output.Format // output serialization; empty = csv
	OutputDir string        // overrides Config.OutputDir
	Workers   int           // overrides Config.Workers
	Store     bool          // save records and a run log entry to the store
	Replace   bool          // replace the stored year instead of upserting
}

// YearResult is the outcome of one year.
type YearResult struct {
	Dataset    Dataset
	OutputPath string
	RawRows    int
	CleanRows  int
	Skipped    int
	StoredRows int64
	Stored     bool
	Summary    metrics.Summary
	Elapsed    time.Duration
	Err        error
}

// RunResult summarizes a Run.
type RunResult struct {
	Counties     int
	Years        []YearResult
	ManifestPath string
}

// NewEngine creates an engine. st may be nil; mc may be nil, in which case
// a private collector is used.
func NewEngine(cfg Config, reg *Registry, st store.Store, mc *metrics.Collector) *Engine {
	if mc == nil {
		mc = metrics.NewCollector()
	}
	return &Engine{cfg: cfg, reg: reg, store: st, metrics: mc}
}

// Metrics returns the engine's collector.
func (e *Engine) Metrics() *metrics.Collector { return e.metrics }

// Run loads the reference table, then processes the selected years
// concurrently. A failing year does not stop the others; their errors are
// joined into the returned error. The reference table failing to load is
// fatal for every year.
func (e *Engine) Run(ctx context.Context, opts RunOpts) (*RunResult, error) {
	log := zap.L().With(zap.String("component", "pipeline.engine"))

	datasets, err := e.reg.Select(opts.Years)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		log.Info("no years selected")
		return &RunResult{}, nil
	}
	if opts.Store && e.store == nil {
		return nil, eris.New("pipeline: store requested but not configured")
	}
	if opts.Format == "" {
		opts.Format = output.FormatCSV
	}
	if opts.OutputDir == "" {
		opts.OutputDir = e.cfg.OutputDir
	}
	if opts.Workers <= 0 {
		opts.Workers = e.cfg.Workers
	}

	table, err := geocodes.Load(e.cfg.GeocodesPath, geocodes.Options{HeaderRows: e.cfg.GeocodesHeaderRows})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load reference table")
	}
	lookup, err := table.CountyLookup()
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: build county lookup")
	}
	log.Info("reference table loaded",
		zap.String("path", e.cfg.GeocodesPath),
		zap.Int("counties", lookup.Len()),
		zap.Int("years", len(datasets)),
	)

	results := make([]YearResult, len(datasets))
	var g errgroup.Group
	for i, ds := range datasets {
		g.Go(func() error {
			results[i] = e.runYear(ctx, ds, lookup, opts)
			return nil
		})
	}
	_ = g.Wait()

	res := &RunResult{Counties: lookup.Len(), Years: results}

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, eris.Wrapf(r.Err, "pipeline: year %d", r.Dataset.Year))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	if err := output.WriteManifest(manifestPath, e.manifest(opts.Format, lookup, results)); err != nil {
		errs = append(errs, err)
	} else {
		res.ManifestPath = manifestPath
	}

	if e.cfg.MetricsTextfile != "" {
		if err := e.metrics.WriteTextfile(e.cfg.MetricsTextfile); err != nil {
			errs = append(errs, err)
		}
	}

	log.Info("engine run complete",
		zap.Int("years", len(results)),
		zap.Int("failed", len(errs)),
	)
	return res, errors.Join(errs...)
}

// runYear processes one dataset. Errors are returned in the result.
func (e *Engine) runYear(ctx context.Context, ds Dataset, lookup fips.Lookup, opts RunOpts) YearResult {
	log := zap.L().With(zap.String("component", "pipeline.engine"), zap.Int("year", ds.Year))
	start := time.Now()
	res := YearResult{Dataset: ds}

	var run *store.Run
	if opts.Store {
		r, err := e.store.StartRun(ctx, ds.Year)
		if err != nil {
			res.Err = err
			return e.finish(ctx, log, res, nil, start)
		}
		run = r
	}

	log.Info("reading raw records", zap.String("path", ds.RawPath))
	raws, err := nbi.ReadRaw(ctx, ds.RawPath, nbi.ReadOptions{Encoding: e.cfg.Encoding})
	if err != nil {
		res.Err = err
		return e.finish(ctx, log, res, run, start)
	}
	res.RawRows = len(raws)

	clean, err := nbi.TransformAll(ctx, raws, ds.Year, lookup, opts.Workers)
	if err != nil {
		res.Err = err
		return e.finish(ctx, log, res, run, start)
	}
	res.CleanRows = len(clean)
	res.Summary = e.metrics.Observe(ds.Year, clean, raws)

	path := filepath.Join(opts.OutputDir, fmt.Sprintf("bridges_%d%s", ds.Year, opts.Format.Extension()))
	written, err := output.Write(path, opts.Format, clean)
	if err != nil {
		res.Err = err
		return e.finish(ctx, log, res, run, start)
	}
	res.OutputPath = written.Path
	res.Skipped = written.Skipped

	if opts.Store {
		save, op := e.store.SaveBridges, "save_bridges"
		if opts.Replace {
			save, op = e.store.ReplaceBridges, "replace_bridges"
		}
		retry := e.cfg.StoreRetry
		retry.OnRetry = resilience.RetryLogger(op, ds.Year)
		n, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (int64, error) {
			return save(ctx, ds.Year, clean)
		})
		if err != nil {
			res.Err = err
			return e.finish(ctx, log, res, run, start)
		}
		res.StoredRows = n
		res.Stored = true
	}

	return e.finish(ctx, log, res, run, start)
}

// finish records the run log entry and metrics for a year.
func (e *Engine) finish(ctx context.Context, log *zap.Logger, res YearResult, run *store.Run, start time.Time) YearResult {
	res.Elapsed = time.Since(start)
	e.metrics.ObserveDuration(res.Dataset.Year, res.Elapsed)

	if res.Err != nil {
		e.metrics.ObserveFailure(res.Dataset.Year)
		log.Error("year failed", zap.Error(res.Err), zap.Duration("elapsed", res.Elapsed))
		if run != nil {
			if logErr := e.store.FailRun(ctx, run.ID, res.Err.Error()); logErr != nil {
				log.Error("failed to record run failure", zap.Error(logErr))
			}
		}
		return res
	}

	if run != nil {
		if err := e.store.CompleteRun(ctx, run.ID, res.StoredRows); err != nil {
			log.Error("failed to record run completion", zap.Error(err))
		}
	}

	log.Info("year complete",
		zap.Int("raw_rows", res.RawRows),
		zap.Int("clean_rows", res.CleanRows),
		zap.Int("fips_misses", res.Summary.FIPSMisses),
		zap.Int("unmapped_codes", total(res.Summary.UnmappedCodes)),
		zap.Int("absent_ratings", total(res.Summary.RatingAbsent)),
		zap.String("output", res.OutputPath),
		zap.Int64("stored_rows", res.StoredRows),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}

func (e *Engine) manifest(format output.Format, lookup fips.Lookup, results []YearResult) output.Manifest {
	m := output.Manifest{
		GeocodesPath: e.cfg.GeocodesPath,
		Counties:     lookup.Len(),
		Format:       format,
		Columns:      nbi.Columns(),
	}
	for _, r := range results {
		ys := output.YearSummary{
			Year:          r.Dataset.Year,
			RawPath:       r.Dataset.RawPath,
			OutputPath:    r.OutputPath,
			RawRows:       r.RawRows,
			CleanRows:     r.CleanRows,
			Skipped:       r.Skipped,
			Stored:        r.Stored,
			FIPSMisses:    r.Summary.FIPSMisses,
			RatingAbsent:  r.Summary.RatingAbsent,
			UnmappedCodes: r.Summary.UnmappedCodes,
		}
		if r.Err != nil {
			ys.Error = r.Err.Error()
		}
		m.Years = append(m.Years, ys)
	}
	return m
}

func total(m map[string]int) int {
	var n int
	for _, v := range m {
		n += v
	}
	return n
}
