// Package metrics defines the Prometheus collectors recorded by one import or
// rebuild run and pushes them to a Pushgateway when the run ends. The watch
// command serves the same registry over HTTP instead.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the collectors for a single pipeline run. Each run owns its
// registry, so repeated runs in one process never collide.
type Metrics struct {
	Registry           *prometheus.Registry
	FilesScanned       *prometheus.CounterVec
	CollectErrors      *prometheus.CounterVec
	CandidatesSelected prometheus.Gauge
	DuplicatesRemoved  prometheus.Gauge
	QuestionsWritten   *prometheus.CounterVec
	RebuildsTotal      *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	InvalidationEvents *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesScanned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questionbank_files_scanned_total",
				Help: "Markdown files scanned by source.",
			},
			[]string{"source"},
		),
		CollectErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questionbank_collect_errors_total",
				Help: "Per-file collection failures by source and kind (parse, validation).",
			},
			[]string{"source", "kind"},
		),
		CandidatesSelected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "questionbank_candidates_selected",
				Help: "Candidates left after deduplication.",
			},
		),
		DuplicatesRemoved: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "questionbank_duplicates_removed",
				Help: "Candidates dropped as duplicates.",
			},
		),
		QuestionsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questionbank_questions_written_total",
				Help: "Question upserts by result (created, overwritten, error).",
			},
			[]string{"result"},
		),
		RebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questionbank_rebuilds_total",
				Help: "Rebuild runs by outcome (committed, dry_run, validation_abort, write_abort, failed).",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "questionbank_run_duration_seconds",
				Help:    "Wall time of a pipeline run.",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		InvalidationEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "questionbank_invalidation_events_total",
				Help: "Rebuild events consumed by watch, by result (applied, failed, malformed).",
			},
			[]string{"result"},
		),
	}

	m.Registry.MustRegister(
		m.FilesScanned,
		m.CollectErrors,
		m.CandidatesSelected,
		m.DuplicatesRemoved,
		m.QuestionsWritten,
		m.RebuildsTotal,
		m.RunDuration,
		m.InvalidationEvents,
	)

	return m
}

// Push sends the registry contents to the Pushgateway at url under job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
