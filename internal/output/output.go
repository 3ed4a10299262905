// Package output serializes cleaned bridge records to CSV, Arrow IPC and
// point shapefiles, plus a YAML manifest describing each run.
package output

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/rotisserie/eris"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// Format names an output serialization.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatArrow     Format = "arrow"
	FormatShapefile Format = "shp"
)

// ParseFormat converts a string like "csv", "arrow" or "shp" into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "arrow", "ipc", "feather":
		return FormatArrow, nil
	case "shp", "shapefile":
		return FormatShapefile, nil
	default:
		return "", eris.Errorf("output: unknown format %q (valid: csv, arrow, shp)", s)
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatArrow:
		return ".arrow"
	case FormatShapefile:
		return ".shp"
	default:
		return ".csv"
	}
}

// Result summarizes a completed write.
type Result struct {
	Path    string
	Rows    int // records written
	Skipped int // records omitted (shapefile rows without coordinates)
}

// Write serializes records to path in the given format. The file is written
// once and replaced if it exists.
func Write(path string, format Format, records []nbi.CleanRecord) (*Result, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "output: create dir for %s", path)
	}

	if format == FormatShapefile {
		return WriteShapefile(path, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "output: create %s", path)
	}

	switch format {
	case FormatArrow:
		err = WriteArrow(f, records, memory.DefaultAllocator)
	case FormatCSV:
		err = WriteCSV(f, records)
	default:
		err = eris.Errorf("output: unknown format %q", format)
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrapf(err, "output: close %s", path)
	}
	return &Result{Path: path, Rows: len(records)}, nil
}
