package geocodes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

const preamble = `Table with row headers in column A and column headers in rows 5
U.S. Census Bureau,,,,,,
"All Geocodes, 2017",,,,,,
,,,,,,
`

const header = `Summary Level,State Code (FIPS),County Code (FIPS),County Subdivision Code (FIPS),Place Code (FIPS),Consolidtated City Code (FIPS),Area Name (including legal/statistical area description)
`

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geocodes.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_CSVFiltersSubdivision(t *testing.T) {
	path := writeCSV(t, preamble+header+`010,00,000,00000,00000,00000,United States
040,24,000,00000,00000,00000,Maryland
050,24,003,00000,00000,00000,Anne Arundel County
061,24,003,90336,00000,00000,District 1
162,24,000,00000,04000,00000,Annapolis city
050,24,005,00000,00000,00000,Baltimore County
`)

	tbl, err := Load(path, Options{})
	require.NoError(t, err)

	// The subdivision row is dropped; state, place and county rows remain.
	require.Len(t, tbl.Entries, 5)
	assert.Equal(t, "24003", tbl.Entries[2].CombinedFIPS)
	assert.Equal(t, "2400000", tbl.Entries[2].CombinedPlaceFIPS)
	assert.Equal(t, "2404000", tbl.Entries[3].CombinedPlaceFIPS)
	assert.Equal(t, "Anne Arundel County", tbl.Entries[2].AreaName)

	lookup, err := tbl.CountyLookup()
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.Len())

	name, ok := lookup.Name("24003")
	assert.True(t, ok)
	assert.Equal(t, "Anne Arundel County", name)

	// The state row shares 24000 with the place row but neither is summary level 050.
	_, ok = lookup.Name("24000")
	assert.False(t, ok)
}

func TestLoad_UnpaddedCodes(t *testing.T) {
	path := writeCSV(t, header+`50,6,37,0,0,0,Los Angeles County
`)
	tbl, err := Load(path, Options{HeaderRows: -1})
	require.NoError(t, err)
	require.Len(t, tbl.Entries, 1)
	assert.Equal(t, "050", tbl.Entries[0].SummaryLevel)
	assert.Equal(t, "06037", tbl.Entries[0].CombinedFIPS)
}

func TestLoad_MissingColumns(t *testing.T) {
	path := writeCSV(t, preamble+"Summary Level,State Code (FIPS),Area Name\n050,24,Anne Arundel County\n")

	_, err := Load(path, Options{})
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, path, schemaErr.Path)
	assert.ElementsMatch(t, []string{"county code", "county subdivision code", "place code"}, schemaErr.Missing)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	_, err := Load(path, Options{})

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Len(t, schemaErr.Missing, len(requiredColumns))
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load("geocodes.parquet", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
}

func TestCountyLookup_Duplicate(t *testing.T) {
	tbl := &Table{Entries: []Entry{
		{SummaryLevel: "050", CombinedFIPS: "24003", AreaName: "Anne Arundel County"},
		{SummaryLevel: "050", CombinedFIPS: "24003", AreaName: "Anne Arundel Co."},
	}}
	_, err := tbl.CountyLookup()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateFIPS))
}

func TestCountyLookup_DuplicateOutsideCountyLevelIgnored(t *testing.T) {
	tbl := &Table{Entries: []Entry{
		{SummaryLevel: "040", CombinedFIPS: "24000", AreaName: "Maryland"},
		{SummaryLevel: "162", CombinedFIPS: "24000", AreaName: "Annapolis city"},
		{SummaryLevel: "050", CombinedFIPS: "24003", AreaName: "Anne Arundel County"},
	}}
	lookup, err := tbl.CountyLookup()
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.Len())
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all-geocodes-v2017.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("all-geocodes-v2017")
	require.NoError(t, err)

	addRow := func(values ...string) {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	addRow("Table with row headers in column A and column headers in rows 5")
	addRow("U.S. Census Bureau")
	addRow("All Geocodes, 2017")
	addRow("Release date: May 2018")
	addRow(strings.Split(strings.TrimSpace(header), ",")...)
	addRow("050", "24", "003", "00000", "00000", "00000", "Anne Arundel County")
	addRow("061", "24", "003", "90336", "00000", "00000", "District 1")
	require.NoError(t, f.Save(path))

	tbl, err := Load(path, Options{HeaderRows: 4})
	require.NoError(t, err)
	require.Len(t, tbl.Entries, 1)

	lookup, err := tbl.CountyLookup()
	require.NoError(t, err)
	name, ok := lookup.Name("24003")
	assert.True(t, ok)
	assert.Equal(t, "Anne Arundel County", name)
}
