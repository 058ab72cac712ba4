package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsRunning is the "running set" gauge of spec §3/§9: jobs currently
	// in RUN or CLEANUP.
	JobsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobmgr_jobs_running",
			Help: "Number of jobs currently in RUN or CLEANUP state",
		},
	)

	JobsByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobmgr_jobs_by_state",
			Help: "Number of active jobs by state",
		},
		[]string{"state"},
	)

	EventsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmgr_events_appended_total",
			Help: "Total events appended to a job's eventlog, by event name",
		},
		[]string{"name"},
	)

	EVXNamesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobmgr_evx_names_total",
			Help: "Total distinct event names indexed by EVX",
		},
	)

	BatchCommitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobmgr_batch_commits_total",
			Help: "Total batches committed successfully, including batches with no KVS appends",
		},
	)

	BatchCommitFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobmgr_batch_commit_failures_total",
			Help: "Total batch-engine KVS commits that failed (fatal)",
		},
	)

	BatchCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobmgr_batch_commit_duration_seconds",
			Help:    "Latency of a batch-engine KVS commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	BatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jobmgr_batch_size_events",
			Help:    "Number of events committed per batch",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	PluginCallbackErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmgr_plugin_callback_errors_total",
			Help: "Total errors returned by plugin hook callbacks, by topic",
		},
		[]string{"topic"},
	)

	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobmgr_transitions_total",
			Help: "Total state transitions observed, by from/to state",
		},
		[]string{"from", "to"},
	)

	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobmgr_raft_is_leader",
			Help: "Whether this replica is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobmgr_raft_applied_index",
			Help: "Last applied Raft log index, when raft replication is enabled",
		},
	)
)

func init() {
	prometheus.MustRegister(
		JobsRunning,
		JobsByState,
		EventsAppendedTotal,
		EVXNamesTotal,
		BatchCommitsTotal,
		BatchCommitFailuresTotal,
		BatchCommitDuration,
		BatchSize,
		PluginCallbackErrorsTotal,
		TransitionsTotal,
		RaftLeader,
		RaftAppliedIndex,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
