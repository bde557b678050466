// Package metrics exports harness and classifier activity as Prometheus
// metrics written to a text file.
package metrics

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/harness"
)

// Collector captures metrics for harness runs. It implements
// harness.Observer.
type Collector struct {
	registry       *prometheus.Registry
	repetitions    *prometheus.CounterVec
	runs           *prometheus.CounterVec
	flakeRate      *prometheus.GaugeVec
	runDuration    *prometheus.HistogramVec
	classification *prometheus.GaugeVec
}

var _ harness.Observer = (*Collector)(nil)

// NewCollector initializes a new metrics registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		repetitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "flakelab_repetitions_total", Help: "Recorded repetitions by result"},
			[]string{"scenario", "result"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "flakelab_runs_total", Help: "Completed harness runs"},
			[]string{"scenario", "truncated"},
		),
		flakeRate: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "flakelab_flake_rate", Help: "Observed flake rate of the latest run"},
			[]string{"scenario"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flakelab_run_duration_seconds",
				Help:    "Run duration on the harness clock in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scenario"},
		),
		classification: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "flakelab_classification_confidence", Help: "Classifier confidence for the assigned kind"},
			[]string{"scenario", "kind"},
		),
	}

	registry.MustRegister(c.repetitions, c.runs, c.flakeRate, c.runDuration, c.classification)
	return c
}

// ObserveOutcome records one repetition.
func (c *Collector) ObserveOutcome(o flake.RunOutcome) {
	result := "pass"
	if !o.Pass {
		result = "fail"
	}
	c.repetitions.WithLabelValues(o.Scenario, result).Inc()
}

// ObserveHistory records a finished run.
func (c *Collector) ObserveHistory(h *harness.History) {
	c.runs.WithLabelValues(h.Scenario, strconv.FormatBool(h.Truncated)).Inc()
	c.flakeRate.WithLabelValues(h.Scenario).Set(h.FlakeRate())
	c.runDuration.WithLabelValues(h.Scenario).Observe(h.FinishedAt.Sub(h.StartedAt).Seconds())
}

// ObserveClassification records a classifier verdict. Earlier verdicts
// for the same scenario are replaced.
func (c *Collector) ObserveClassification(r flake.ClassificationResult) {
	for _, kind := range flake.Precedence {
		c.classification.DeleteLabelValues(r.Scenario, string(kind))
	}
	c.classification.WithLabelValues(r.Scenario, string(r.Kind)).Set(r.Confidence)
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTo encodes all metrics in the Prometheus text format.
func (c *Collector) WriteTo(w io.Writer) (int64, error) {
	metricFamilies, err := c.registry.Gather()
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range metricFamilies {
		if err := enc.Encode(family); err != nil {
			return 0, err
		}
	}
	return buf.WriteTo(w)
}

// Write writes all metrics to a Prometheus text file.
func (c *Collector) Write(path string) error {
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
