package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	RemindersSent    = prometheus.NewCounter(prometheus.CounterOpts{Name: "monitor_reminders_sent_total", Help: "Auto-complete reminders dispatched"})
	AutoCompleted    = prometheus.NewCounter(prometheus.CounterOpts{Name: "monitor_auto_completed_total", Help: "Records force-submitted for review"})
	RecordErrors     = prometheus.NewCounter(prometheus.CounterOpts{Name: "monitor_record_errors_total", Help: "Per-record failures during monitor runs"})
	RunsSkipped      = prometheus.NewCounter(prometheus.CounterOpts{Name: "monitor_runs_skipped_total", Help: "Ticks skipped because a run was still in flight"})
	LastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{Name: "monitor_last_run_timestamp_seconds", Help: "Unix time of the last finished run"})
	RunDuration      = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "monitor_run_duration_seconds", Help: "Wall-clock duration of monitor runs"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			RemindersSent,
			AutoCompleted,
			RecordErrors,
			RunsSkipped,
			LastRunTimestamp,
			RunDuration,
		)
	})
	return promhttp.Handler()
}
