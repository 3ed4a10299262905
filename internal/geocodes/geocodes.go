// Package geocodes loads the Census all-geocodes reference table and turns
// it into the county-level FIPS lookup joined onto bridge records.
package geocodes

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/fagan2888/bridge-data/internal/fips"
)

const (
	// DefaultHeaderRows is the number of preamble rows above the header in
	// the published all-geocodes workbook.
	DefaultHeaderRows = 4

	// CountySummaryLevel is the Census summary level for county rows.
	CountySummaryLevel = "050"

	countyLevelSubdivision = "00000"
)

// ErrDuplicateFIPS is returned when the county-level reference rows contain
// the same combined state+county code twice.
var ErrDuplicateFIPS = eris.New("geocodes: duplicate combined FIPS code")

// SchemaError reports required columns missing from a reference file.
type SchemaError struct {
	Path    string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("geocodes: %s is missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
}

// Entry is one county-level row of the reference table.
type Entry struct {
	SummaryLevel      string
	State             string
	County            string
	Place             string
	Subdivision       string
	CombinedFIPS      string
	CombinedPlaceFIPS string
	AreaName          string
}

// Table holds the rows that passed the subdivision filter, in file order.
type Table struct {
	Entries []Entry
}

// Options configures Load.
type Options struct {
	HeaderRows int // preamble rows before the header; 0 = DefaultHeaderRows, -1 = none
}

// Load reads a reference table from an .xlsx workbook (first sheet) or a
// delimited .csv/.txt file.
func Load(path string, opts Options) (*Table, error) {
	skip := opts.HeaderRows
	switch {
	case skip == 0:
		skip = DefaultHeaderRows
	case skip < 0:
		skip = 0
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".csv", ".txt":
		rows, err = readCSV(path)
	default:
		return nil, eris.Errorf("geocodes: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	return parseRows(path, rows, skip)
}

// column identifies one required reference column.
type column struct {
	name    string
	aliases []string
}

var (
	colSummaryLevel = column{"summary level", []string{"summary level", "sumlev", "summary_level"}}
	colState        = column{"state code", []string{"state code (fips)", "state code", "state", "statefp", "state_fips"}}
	colCounty       = column{"county code", []string{"county code (fips)", "county code", "county", "countyfp", "county_fips"}}
	colSubdivision  = column{"county subdivision code", []string{"county subdivision code (fips)", "county subdivision code", "cousub", "cousubfp"}}
	colPlace        = column{"place code", []string{"place code (fips)", "place code", "place", "placefp"}}
	colAreaName     = column{"area name", []string{"area name (including legal/statistical area description)", "area name", "name"}}

	requiredColumns = []column{colSummaryLevel, colState, colCounty, colSubdivision, colPlace, colAreaName}
)

// normalizeHeader lowercases and collapses internal whitespace.
func normalizeHeader(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// resolveColumns maps each required column to its header index.
func resolveColumns(path string, header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}

	out := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, c := range requiredColumns {
		found := false
		for _, alias := range c.aliases {
			if i, ok := idx[alias]; ok {
				out[c.name] = i
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Path: path, Missing: missing}
	}
	return out, nil
}

func cell(record []string, cols map[string]int, c column) string {
	i := cols[c.name]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRows(path string, rows [][]string, skip int) (*Table, error) {
	if len(rows) <= skip {
		return nil, &SchemaError{Path: path, Missing: columnNames()}
	}

	cols, err := resolveColumns(path, rows[skip])
	if err != nil {
		return nil, err
	}

	t := &Table{}
	for _, record := range rows[skip+1:] {
		sub := fips.NormalizeSubdivision(cell(record, cols, colSubdivision))
		if sub != countyLevelSubdivision {
			continue
		}
		state := fips.NormalizeState(cell(record, cols, colState))
		county := fips.NormalizeCounty(cell(record, cols, colCounty))
		place := fips.NormalizePlace(cell(record, cols, colPlace))
		t.Entries = append(t.Entries, Entry{
			SummaryLevel:      normalizeSummaryLevel(cell(record, cols, colSummaryLevel)),
			State:             state,
			County:            county,
			Place:             place,
			Subdivision:       sub,
			CombinedFIPS:      fips.Combine(state, county),
			CombinedPlaceFIPS: fips.CombinePlace(state, place),
			AreaName:          cell(record, cols, colAreaName),
		})
	}
	return t, nil
}

// normalizeSummaryLevel pads a summary level to 3 digits ("50" → "050").
// Summary levels share the county code width.
func normalizeSummaryLevel(s string) string {
	return fips.NormalizeCounty(s)
}

func columnNames() []string {
	out := make([]string, len(requiredColumns))
	for i, c := range requiredColumns {
		out[i] = c.name
	}
	return out
}

// CountyLookup restricts the table to county summary level rows and builds
// the combined-code lookup. A repeated combined code is a reference data
// integrity violation and returns ErrDuplicateFIPS.
func (t *Table) CountyLookup() (fips.Lookup, error) {
	names := make(map[string]string)
	for _, e := range t.Entries {
		if e.SummaryLevel != CountySummaryLevel {
			continue
		}
		if prev, dup := names[e.CombinedFIPS]; dup {
			return fips.Lookup{}, eris.Wrapf(ErrDuplicateFIPS, "%s (%q and %q)", e.CombinedFIPS, prev, e.AreaName)
		}
		names[e.CombinedFIPS] = e.AreaName
	}
	return fips.NewLookup(names), nil
}
