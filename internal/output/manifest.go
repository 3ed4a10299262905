package output

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// YearSummary describes one year's cleaned output.
type YearSummary struct {
	Year       int    `yaml:"year"`
	RawPath    string `yaml:"raw_path"`
	OutputPath string `yaml:"output_path,omitempty"`
	RawRows    int    `yaml:"raw_rows"`
	CleanRows  int    `yaml:"clean_rows"`
	Skipped    int    `yaml:"skipped,omitempty"`
	Stored     bool   `yaml:"stored"`
	Error      string `yaml:"error,omitempty"`

	FIPSMisses    int            `yaml:"fips_misses"`
	RatingAbsent  map[string]int `yaml:"rating_absent,omitempty"`
	UnmappedCodes map[string]int `yaml:"unmapped_codes,omitempty"`
}

// Manifest lists what a clean run produced. It carries no timestamps so that
// identical inputs produce an identical manifest.
type Manifest struct {
	GeocodesPath string        `yaml:"geocodes_path"`
	Counties     int           `yaml:"counties"`
	Format       Format        `yaml:"format"`
	Columns      []string      `yaml:"columns"`
	Years        []YearSummary `yaml:"years"`
}

// WriteManifest writes m as YAML, with years sorted ascending.
func WriteManifest(path string, m Manifest) error {
	m.Years = append([]YearSummary(nil), m.Years...)
	sort.Slice(m.Years, func(i, j int) bool { return m.Years[i].Year < m.Years[j].Year })

	data, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "output: marshal manifest")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "output: create dir for %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "output: write manifest %s", path)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "output: read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "output: parse manifest %s", path)
	}
	return &m, nil
}
