// Package metrics provides Prometheus metrics for background tasks, the
// navigation session and the watcher bridge.
//
// All methods are safe on a nil *Metrics so callers that do not export
// metrics can pass nil.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Task outcomes used as the "status" label.
const (
	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Metrics holds the chex collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	TasksStarted  *prometheus.CounterVec
	TasksFinished *prometheus.CounterVec
	TasksRunning  *prometheus.GaugeVec
	TaskDuration  *prometheus.HistogramVec
	BytesCopied   prometheus.Counter
	FilesCopied   prometheus.Counter
	SearchMatches prometheus.Counter
	Refreshes     *prometheus.CounterVec
	WatcherEvents prometheus.Counter
	WatcherErrors prometheus.Counter
}

// New creates the collectors on a fresh registry. withRuntime also registers
// the Go runtime and process collectors.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,

		TasksStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chex_tasks_started_total",
				Help: "Background tasks started",
			},
			[]string{"kind"},
		),
		TasksFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chex_tasks_finished_total",
				Help: "Background tasks finished by outcome",
			},
			[]string{"kind", "status"},
		),
		TasksRunning: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "chex_tasks_running",
				Help: "Background tasks currently running",
			},
			[]string{"kind"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chex_task_duration_seconds",
				Help:    "Background task wall time",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
			},
			[]string{"kind"},
		),
		BytesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chex_copy_bytes_total",
			Help: "Bytes written by copy tasks",
		}),
		FilesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chex_copy_files_total",
			Help: "Files written by copy tasks",
		}),
		SearchMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chex_search_matches_total",
			Help: "Results emitted by search tasks",
		}),
		Refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chex_snapshot_rebuilds_total",
				Help: "Directory snapshot rebuilds by trigger",
			},
			[]string{"trigger"},
		),
		WatcherEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chex_watcher_events_total",
			Help: "Filesystem events received from the watcher",
		}),
		WatcherErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chex_watcher_errors_total",
			Help: "Watcher installation and runtime errors",
		}),
	}

	reg.MustRegister(
		m.TasksStarted, m.TasksFinished, m.TasksRunning, m.TaskDuration,
		m.BytesCopied, m.FilesCopied, m.SearchMatches,
		m.Refreshes, m.WatcherEvents, m.WatcherErrors,
	)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TaskStarted records a task of kind entering the pool.
func (m *Metrics) TaskStarted(kind string) {
	if m == nil {
		return
	}
	m.TasksStarted.WithLabelValues(kind).Inc()
	m.TasksRunning.WithLabelValues(kind).Inc()
}

// TaskFinished records the outcome and duration of a task.
func (m *Metrics) TaskFinished(kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TasksRunning.WithLabelValues(kind).Dec()
	m.TasksFinished.WithLabelValues(kind, status).Inc()
	m.TaskDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// FileCopied records one completed file of n bytes.
func (m *Metrics) FileCopied(n int64) {
	if m == nil {
		return
	}
	m.FilesCopied.Inc()
	m.BytesCopied.Add(float64(n))
}

// SearchMatch records one emitted search result.
func (m *Metrics) SearchMatch() {
	if m == nil {
		return
	}
	m.SearchMatches.Inc()
}

// Rebuild records a snapshot rebuild caused by trigger
// ("navigate", "refresh", "watch", "policy").
func (m *Metrics) Rebuild(trigger string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(trigger).Inc()
}

// WatcherEvent records n events drained from the watcher queue.
func (m *Metrics) WatcherEvent(n int) {
	if m == nil {
		return
	}
	m.WatcherEvents.Add(float64(n))
}

// WatcherError records a watcher failure.
func (m *Metrics) WatcherError() {
	if m == nil {
		return
	}
	m.WatcherErrors.Inc()
}
