// Package metrics counts what a wsmaint run did and exports the counters in
// the Prometheus text format for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/harrison/wsmaint/internal/models"
)

const namespace = "wsmaint"

// Recorder holds the collectors for one run in a private registry.
type Recorder struct {
	command  string
	registry *prometheus.Registry

	matches           *prometheus.CounterVec
	actionsFailed     *prometheus.CounterVec
	dirsVisited       prometheus.Counter
	bytesFreed        prometheus.Counter
	filesRewritten    prometheus.Counter
	manifestsRestored prometheus.Counter
	lastRunDuration   *prometheus.GaugeVec
}

// NewRecorder creates a Recorder whose labelled series carry command.
func NewRecorder(command string) *Recorder {
	r := &Recorder{
		command:  command,
		registry: prometheus.NewRegistry(),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Total matched paths handed to an action.",
		}, []string{"command"}),
		actionsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_failed_total",
			Help:      "Total actions that returned an error.",
		}, []string{"command"}),
		dirsVisited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directories_visited_total",
			Help:      "Total directories listed during tree searches.",
		}),
		bytesFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_freed_total",
			Help:      "Total bytes removed by clean.",
		}),
		filesRewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_rewritten_total",
			Help:      "Total version-stamp files rewritten by bump.",
		}),
		manifestsRestored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifests_restored_total",
			Help:      "Total package manifests restored.",
		}),
		lastRunDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}, []string{"command"}),
	}

	r.registry.MustRegister(
		r.matches,
		r.actionsFailed,
		r.dirsVisited,
		r.bytesFreed,
		r.filesRewritten,
		r.manifestsRestored,
		r.lastRunDuration,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record counts one action outcome.
func (r *Recorder) Record(kind models.ActionKind, status models.ActionStatus) {
	r.matches.WithLabelValues(r.command).Inc()

	switch status {
	case models.ActionFailed:
		r.actionsFailed.WithLabelValues(r.command).Inc()
	case models.ActionOK:
		switch kind {
		case models.KindRewrite:
			r.filesRewritten.Inc()
		case models.KindRestore:
			r.manifestsRestored.Inc()
		}
	}
}

// DirectoryVisited counts one listed directory.
func (r *Recorder) DirectoryVisited() {
	r.dirsVisited.Inc()
}

// AddBytesFreed adds n removed bytes.
func (r *Recorder) AddBytesFreed(n int64) {
	if n > 0 {
		r.bytesFreed.Add(float64(n))
	}
}

// ObserveDuration sets the run duration gauge.
func (r *Recorder) ObserveDuration(d time.Duration) {
	r.lastRunDuration.WithLabelValues(r.command).Set(d.Seconds())
}

// WriteTextfile writes every collector to path in the text exposition format.
// The write goes through a temp file and rename so a scraper never reads a
// partial file.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
