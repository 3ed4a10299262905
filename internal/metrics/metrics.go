// Package metrics counts per-year pipeline outcomes in a private Prometheus
// registry and writes them for the node-exporter textfile collector.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"

	"github.com/fagan2888/bridge-data/internal/nbi"
)

// Collector owns the run's metrics. Safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	records      *prometheus.CounterVec
	ratingAbsent *prometheus.CounterVec
	fipsMisses   *prometheus.CounterVec
	unmapped     *prometheus.CounterVec
	duration     *prometheus.GaugeVec
	failures     *prometheus.CounterVec
}

// NewCollector registers the bridge metrics on a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_records_total",
			Help: "Clean bridge records produced",
		}, []string{"year"}),
		ratingAbsent: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_rating_absent_total",
			Help: "Component condition ratings that were blank or not numeric",
		}, []string{"year", "component"}),
		fipsMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_fips_lookup_miss_total",
			Help: "Records whose combined county code has no county name",
		}, []string{"year"}),
		unmapped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_code_unmapped_total",
			Help: "Coded values with no label in the recoding table",
		}, []string{"year", "field"}),
		duration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bridge_run_duration_seconds",
			Help: "Wall time spent processing one inventory year",
		}, []string{"year"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_year_failures_total",
			Help: "Inventory years that failed to process",
		}, []string{"year"}),
	}
}

// Observe summarizes a transformed year and adds it to the counters.
func (c *Collector) Observe(year int, clean []nbi.CleanRecord, raw []nbi.RawRecord) Summary {
	s := Summarize(clean, raw)
	c.Add(year, s)
	return s
}

// Add records a precomputed summary.
func (c *Collector) Add(year int, s Summary) {
	y := strconv.Itoa(year)
	c.records.WithLabelValues(y).Add(float64(s.Records))
	c.fipsMisses.WithLabelValues(y).Add(float64(s.FIPSMisses))
	for component, n := range s.RatingAbsent {
		c.ratingAbsent.WithLabelValues(y, component).Add(float64(n))
	}
	for field, n := range s.UnmappedCodes {
		c.unmapped.WithLabelValues(y, field).Add(float64(n))
	}
}

// ObserveDuration sets the processing time for a year.
func (c *Collector) ObserveDuration(year int, d time.Duration) {
	c.duration.WithLabelValues(strconv.Itoa(year)).Set(d.Seconds())
}

// ObserveFailure counts a failed year.
func (c *Collector) ObserveFailure(year int) {
	c.failures.WithLabelValues(strconv.Itoa(year)).Inc()
}

// WriteTextfile writes all metrics in the text exposition format. The file is
// replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return eris.Wrapf(err, "metrics: write textfile %s", path)
	}
	return nil
}
