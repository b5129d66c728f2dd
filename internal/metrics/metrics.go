// Package metrics declares the Prometheus collectors exported on the dev
// server's metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TaskRuns counts task runs by task and result ("success" or "failure").
	TaskRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assetgrid_task_runs_total",
		Help: "Task runs by outcome",
	}, []string{"task", "result"})

	// TaskDuration observes the wall time of each task run.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assetgrid_task_duration_seconds",
		Help:    "Wall time of a task run",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"task"})

	// FilesWritten counts output files committed per task.
	FilesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assetgrid_files_written_total",
		Help: "Files committed to disk by task runs",
	}, []string{"task"})

	// WatchEvents counts changed paths that matched a watch binding.
	WatchEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "assetgrid_watch_events_total",
		Help: "File system events that matched a watch binding",
	})

	// Reloads counts reload notifications by kind.
	Reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assetgrid_reloads_total",
		Help: "Reload notifications pushed to browsers",
	}, []string{"kind"})

	// Sessions is the number of connected live-reload clients.
	Sessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assetgrid_reload_sessions",
		Help: "Connected live-reload clients",
	})

	// ImageCache counts image cache lookups by result ("hit" or "miss").
	ImageCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assetgrid_image_cache_total",
		Help: "Image compression cache lookups",
	}, []string{"result"})
)
