package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fagan2888/bridge-data/internal/fips"
	"github.com/fagan2888/bridge-data/internal/nbi"
)

func sampleYear() ([]nbi.CleanRecord, []nbi.RawRecord) {
	lookup := fips.NewLookup(map[string]string{"24003": "Anne Arundel County"})
	raw := []nbi.RawRecord{
		{
			StateCode:          "24",
			CountyCode:         "3",
			RoutePrefix:        "1",
			ServiceLevel:       "1",
			StructureNumber:    "'100000020039010'",
			Maintenance:        "01",
			Owner:              "1",
			History:            "5",
			OpenClosedPosted:   "A",
			DeckCond:           "3",
			SuperstructureCond: "7",
			SubstructureCond:   "N",
			CulvertCond:        "N",
			ScourCritical:      "8",
		},
		{
			StateCode:       "24",
			CountyCode:      "999",
			StructureNumber: "'200000BC0064010'",
			Maintenance:     "99",
			ScourCritical:   "X",
		},
	}
	clean := make([]nbi.CleanRecord, len(raw))
	for i, r := range raw {
		clean[i] = nbi.Transform(r, 2018, lookup)
	}
	return clean, raw
}

func TestSummarize(t *testing.T) {
	clean, raw := sampleYear()
	s := Summarize(clean, raw)

	assert.Equal(t, 2, s.Records)
	assert.Equal(t, 1, s.FIPSMisses)
	assert.Equal(t, map[string]int{
		"deck":           1,
		"superstructure": 1,
		"substructure":   2,
		"culvert":        2,
	}, s.RatingAbsent)
	assert.Equal(t, map[string]int{
		"maintenance_responsibility": 1,
		"scour_critical":             1,
	}, s.UnmappedCodes)
}

func TestSummarize_WithoutRaw(t *testing.T) {
	clean, _ := sampleYear()
	s := Summarize(clean, nil)

	assert.Equal(t, 2, s.Records)
	assert.Equal(t, 1, s.FIPSMisses)
	assert.Empty(t, s.UnmappedCodes)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, nil)
	assert.Zero(t, s.Records)
	assert.Zero(t, s.FIPSMisses)
	assert.Empty(t, s.RatingAbsent)
}

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()
	clean, raw := sampleYear()

	s := c.Observe(2018, clean, raw)
	assert.Equal(t, 2, s.Records)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.records.WithLabelValues("2018")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fipsMisses.WithLabelValues("2018")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ratingAbsent.WithLabelValues("2018", "culvert")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unmapped.WithLabelValues("2018", "scour_critical")))

	c.Observe(2018, clean, raw)
	assert.Equal(t, 4.0, testutil.ToFloat64(c.records.WithLabelValues("2018")))
}

func TestCollector_YearsAreSeparate(t *testing.T) {
	c := NewCollector()
	clean, raw := sampleYear()
	c.Observe(2007, clean[:1], raw[:1])
	c.Observe(2017, clean, raw)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.records.WithLabelValues("2007")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.records.WithLabelValues("2017")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.fipsMisses.WithLabelValues("2007")))
}

func TestCollector_DurationAndFailure(t *testing.T) {
	c := NewCollector()
	c.ObserveDuration(2017, 1500*time.Millisecond)
	c.ObserveFailure(2007)

	assert.Equal(t, 1.5, testutil.ToFloat64(c.duration.WithLabelValues("2017")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("2007")))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector()
	clean, raw := sampleYear()
	c.Observe(2018, clean, raw)

	path := filepath.Join(t.TempDir(), "bridge.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `bridge_records_total{year="2018"} 2`)
	assert.Contains(t, text, `bridge_fips_lookup_miss_total{year="2018"} 1`)
	assert.True(t, strings.Contains(text, "# TYPE bridge_rating_absent_total counter"))
}

func TestCollector_WriteTextfile_BadDir(t *testing.T) {
	c := NewCollector()
	err := c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "bridge.prom"))
	assert.Error(t, err)
}
