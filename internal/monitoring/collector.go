// Package monitoring records per-run pipeline counters and writes them in the
// Prometheus textfile format.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

const namespace = "claims"

// Collector gathers metrics for a single run in a private registry.
type Collector struct {
	registry *prometheus.Registry

	filesLoaded   *prometheus.GaugeVec
	filesSkipped  *prometheus.GaugeVec
	records       *prometheus.GaugeVec
	claimsDropped *prometheus.GaugeVec
	outputRows    *prometheus.GaugeVec
	phaseSeconds  *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		filesLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_loaded",
			Help:      "Input files parsed per collection.",
		}, []string{"collection"}),
		filesSkipped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "files_skipped",
			Help:      "Input files or directories skipped per collection.",
		}, []string{"collection"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_loaded",
			Help:      "Raw records loaded per collection.",
		}, []string{"collection"}),
		claimsDropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "claims_dropped",
			Help:      "Claims excluded before aggregation, by reason.",
		}, []string{"reason"}),
		outputRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_rows",
			Help:      "Rows emitted per goal.",
		}, []string{"goal"}),
		phaseSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time per pipeline phase.",
		}, []string{"phase"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}

	c.registry.MustRegister(
		c.filesLoaded,
		c.filesSkipped,
		c.records,
		c.claimsDropped,
		c.outputRows,
		c.phaseSeconds,
		c.lastRun,
	)
	return c
}

// RecordLoad records the loader outcome for one collection.
func (c *Collector) RecordLoad(collection string, files, skipped, records int) {
	c.filesLoaded.WithLabelValues(collection).Set(float64(files))
	c.filesSkipped.WithLabelValues(collection).Set(float64(skipped))
	c.records.WithLabelValues(collection).Set(float64(records))
}

// RecordDropped records how many claims were excluded for a reason.
func (c *Collector) RecordDropped(reason string, n int) {
	c.claimsDropped.WithLabelValues(reason).Set(float64(n))
}

// RecordRows records the number of rows a goal produced.
func (c *Collector) RecordRows(goal string, n int) {
	c.outputRows.WithLabelValues(goal).Set(float64(n))
}

// RecordPhase records how long a phase took.
func (c *Collector) RecordPhase(phase string, d time.Duration) {
	c.phaseSeconds.WithLabelValues(phase).Set(d.Seconds())
}

// MarkFinished stamps the run completion time.
func (c *Collector) MarkFinished(t time.Time) {
	c.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes all metrics to path in the node-exporter textfile
// format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return eris.Wrapf(err, "monitoring: write textfile %s", path)
	}
	return nil
}
