// Package metrics exposes run counters for the image tools. Batch runs have
// no scrape endpoint, so the registry is written to a node-exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Hero outcomes
const (
	OutcomeOptimized = "optimized"
	OutcomeSkipped   = "already_optimized"
	OutcomeNoGain    = "no_gain"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors for one process
type Metrics struct {
	Registry *prometheus.Registry

	VariantsWritten *prometheus.CounterVec
	VariantFailures prometheus.Counter
	BytesIn         prometheus.Counter
	BytesOut        prometheus.Counter
	HeroFiles       *prometheus.CounterVec
	EncodeDuration  prometheus.Histogram
	LastRun         prometheus.Gauge
}

// New registers every collector on a fresh registry
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		VariantsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_variants_written_total",
			Help: "Variant files written, by kind (tier or full).",
		}, []string{"kind"}),
		VariantFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_variant_failures_total",
			Help: "Variants that could not be produced.",
		}),
		BytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_bytes_in_total",
			Help: "Bytes of input images processed.",
		}),
		BytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_bytes_out_total",
			Help: "Bytes of encoded output written.",
		}),
		HeroFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "image_hero_files_total",
			Help: "Hero files seen by the re-compressor, by outcome.",
		}, []string{"outcome"}),
		EncodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "image_encode_duration_seconds",
			Help:    "Time spent encoding one output file.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "image_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	m.Registry.MustRegister(
		m.VariantsWritten,
		m.VariantFailures,
		m.BytesIn,
		m.BytesOut,
		m.HeroFiles,
		m.EncodeDuration,
		m.LastRun,
	)
	return m
}

// ObserveEncode records the time elapsed since start
func (m *Metrics) ObserveEncode(start time.Time) {
	if m == nil {
		return
	}
	m.EncodeDuration.Observe(time.Since(start).Seconds())
}

// WriteTextfile stamps LastRun and writes the registry to path. Empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	m.LastRun.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
