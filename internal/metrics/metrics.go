// Package metrics counts resolution outcomes and sync runs. A sync is a
// short-lived process, so instead of serving /metrics the registry is
// written once per run as a node_exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pitwall"

// Recorder owns a private registry and the metrics registered on it. A nil
// *Recorder ignores every call.
type Recorder struct {
	registry *prometheus.Registry

	resolutions   *prometheus.CounterVec
	reviewsFiled  *prometheus.CounterVec
	aliasesAdded  *prometheus.CounterVec
	matchScore    *prometheus.HistogramVec
	syncDuration  *prometheus.HistogramVec
	syncRuns      *prometheus.CounterVec
	lastSyncStamp *prometheus.GaugeVec
}

// New creates a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)
	return &Recorder{
		registry: reg,
		resolutions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "resolutions_total",
			Help:      "Resolved records by entity type and the strategy that decided them.",
		}, []string{"entity", "via"}),
		reviewsFiled: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "reviews_filed_total",
			Help:      "Low-confidence matches filed for human review.",
		}, []string{"entity"}),
		aliasesAdded: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "aliases_added_total",
			Help:      "Aliases written to the store.",
		}, []string{"entity"}),
		matchScore: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "match_score",
			Help:      "Scores of fuzzy matches, including those sent to review.",
			Buckets:   []float64{0.3, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		}, []string{"entity"}),
		syncDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of sync runs in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"source"}),
		syncRuns: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by source and final status.",
		}, []string{"source", "status"}),
		lastSyncStamp: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful sync per source.",
		}, []string{"source"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Resolution counts one resolved record. Fuzzy outcomes also record their score.
func (r *Recorder) Resolution(entity, via string, score float64) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(entity, via).Inc()
	if via == "fuzzy" || via == "review" {
		r.matchScore.WithLabelValues(entity).Observe(score)
	}
}

// ReviewFiled counts one pending match written to the review queue.
func (r *Recorder) ReviewFiled(entity string) {
	if r == nil {
		return
	}
	r.reviewsFiled.WithLabelValues(entity).Inc()
}

// AliasesAdded counts aliases persisted for an entity type.
func (r *Recorder) AliasesAdded(entity string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.aliasesAdded.WithLabelValues(entity).Add(float64(n))
}

// SyncFinished records the outcome of a sync run.
func (r *Recorder) SyncFinished(source, status string, elapsed time.Duration, finishedAt time.Time) {
	if r == nil {
		return
	}
	r.syncRuns.WithLabelValues(source, status).Inc()
	r.syncDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	if status == "completed" {
		r.lastSyncStamp.WithLabelValues(source).Set(float64(finishedAt.Unix()))
	}
}

// WriteTextfile writes the registry in the text exposition format. The
// write is atomic, so a collector never reads a half-written file.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
