package main

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fagan2888/bridge-data/internal/config"
	"github.com/fagan2888/bridge-data/internal/metrics"
	"github.com/fagan2888/bridge-data/internal/output"
	"github.com/fagan2888/bridge-data/internal/pipeline"
)

func TestClean_AllYears(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, "clean")
	require.NoError(t, err)

	assert.Contains(t, out, "YEAR")
	assert.Contains(t, out, "2007")
	assert.Contains(t, out, "2017")
	assert.NotContains(t, out, "failed")

	for _, name := range []string{"bridges_2007.csv", "bridges_2017.csv", pipeline.ManifestName} {
		_, statErr := os.Stat(w.path("out", name))
		assert.NoError(t, statErr, name)
	}

	m, err := output.ReadManifest(w.path("out", pipeline.ManifestName))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Counties)
	assert.Equal(t, output.FormatCSV, m.Format)
}

func TestClean_FlagsOverrideConfig(t *testing.T) {
	w := newWorkspace(t)

	_, err := execute(t, "clean", "--years", "2017", "--format", "arrow", "--output-dir", w.path("arrow"))
	require.NoError(t, err)

	_, err = os.Stat(w.path("arrow", "bridges_2017.arrow"))
	assert.NoError(t, err)
	_, err = os.Stat(w.path("arrow", "bridges_2007.arrow"))
	assert.True(t, os.IsNotExist(err))
}

func TestClean_BadFormat(t *testing.T) {
	newWorkspace(t)

	_, err := execute(t, "clean", "--format", "parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestClean_ReplaceRequiresStore(t *testing.T) {
	newWorkspace(t)

	_, err := execute(t, "clean", "--replace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--replace requires --store")
}

func TestClean_UnknownYear(t *testing.T) {
	newWorkspace(t)

	_, err := execute(t, "clean", "--years", "1999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown year 1999")
}

func TestClean_FailingYearReported(t *testing.T) {
	w := newWorkspace(t)
	require.NoError(t, os.Remove(w.path("raw", "MD07.txt")))

	out, err := execute(t, "clean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year 2007")
	assert.Contains(t, out, "failed")

	_, statErr := os.Stat(w.path("out", "bridges_2017.csv"))
	assert.NoError(t, statErr)
}

func TestClean_StoreThenRuns(t *testing.T) {
	w := newWorkspace(t)

	_, err := execute(t, "clean", "--store", "--years", "2017")
	require.NoError(t, err)
	_, err = os.Stat(w.path("db", "bridges.db"))
	require.NoError(t, err)

	out, err := execute(t, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2017")
	assert.Contains(t, out, "complete")

	out, err = execute(t, "runs", "list", "--year", "2007")
	require.NoError(t, err)
	assert.NotContains(t, out, "complete")
}

func TestRunsShow_NotFound(t *testing.T) {
	newWorkspace(t)

	_, err := execute(t, "runs", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func TestMigrate_SQLite(t *testing.T) {
	w := newWorkspace(t)

	_, err := execute(t, "migrate")
	require.NoError(t, err)
	_, err = os.Stat(w.path("db", "bridges.db"))
	assert.NoError(t, err)

	// Idempotent.
	_, err = execute(t, "migrate")
	assert.NoError(t, err)
}

func TestBuildRegistry(t *testing.T) {
	reg, err := buildRegistry(config.InventoryConfig{
		RawDir: "raw",
		Years: []config.YearConfig{
			{Year: 2017, RawPath: "MD17.txt"},
			{Year: 2007, RawPath: "/abs/MD07.txt"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2007, 2017}, reg.Years())

	d, err := reg.Get(2017)
	require.NoError(t, err)
	assert.Equal(t, "raw/MD17.txt", d.RawPath)

	_, err = buildRegistry(config.InventoryConfig{Years: []config.YearConfig{{Year: 2017}}})
	assert.Error(t, err)
}

func TestFormatYearResults(t *testing.T) {
	results := []pipeline.YearResult{
		{
			Dataset:    pipeline.Dataset{Year: 2007},
			RawRows:    120,
			CleanRows:  120,
			OutputPath: "out/bridges_2007.csv",
			Stored:     true,
			StoredRows: 120,
			Summary:    metrics.Summary{FIPSMisses: 3},
		},
		{
			Dataset: pipeline.Dataset{Year: 2017},
			Err:     errors.New("nbi: open MD17.txt: no such file or directory"),
		},
	}

	var buf bytes.Buffer
	formatYearResults(&buf, results)

	out := buf.String()
	assert.Contains(t, out, "FIPS MISS")
	assert.Contains(t, out, "out/bridges_2007.csv")
	assert.Contains(t, out, "ok")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "no such file")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "", truncate("", 10))
}
