package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus.
type Collector struct {
	instancesRegistered   *prometheus.CounterVec
	instancesUnregistered prometheus.Counter
	heartbeats            *prometheus.CounterVec
	instanceCount         *prometheus.GaugeVec

	tasksAssigned     *prometheus.CounterVec
	taskStatusChanges *prometheus.CounterVec
	taskRegressions   prometheus.Counter

	claimsGranted  *prometheus.CounterVec
	claimsRefused  *prometheus.CounterVec
	claimsReleased *prometheus.CounterVec
	activeClaims   prometheus.Gauge

	processRuns      *prometheus.CounterVec
	processDuration  prometheus.Histogram
	runningProcesses prometheus.Gauge

	requests *prometheus.CounterVec
}

// NewCollector creates a new Prometheus metrics collector.
func NewCollector() *Collector {
	return &Collector{
		instancesRegistered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_instances_registered_total",
				Help: "Total number of instances registered",
			},
			[]string{"role"},
		),
		instancesUnregistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coordd_instances_unregistered_total",
				Help: "Total number of instances unregistered",
			},
		),
		heartbeats: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_heartbeats_total",
				Help: "Total number of heartbeats received",
			},
			[]string{"status"},
		),
		instanceCount: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "coordd_instances",
				Help: "Current number of instances by status",
			},
			[]string{"status"},
		),
		tasksAssigned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_tasks_assigned_total",
				Help: "Total number of tasks created",
			},
			[]string{"kind", "assignment"},
		),
		taskStatusChanges: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_task_status_changes_total",
				Help: "Total number of task status updates",
			},
			[]string{"status"},
		),
		taskRegressions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "coordd_task_regressions_total",
				Help: "Total number of backward task status transitions",
			},
		),
		claimsGranted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_claims_granted_total",
				Help: "Total number of resource claims granted",
			},
			[]string{"kind", "operation"},
		),
		claimsRefused: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_claims_refused_total",
				Help: "Total number of resource claims refused due to conflicts",
			},
			[]string{"kind", "operation"},
		),
		claimsReleased: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_claims_released_total",
				Help: "Total number of resource claims released",
			},
			[]string{"kind"},
		),
		activeClaims: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "coordd_active_claims",
				Help: "Current number of live resource claims",
			},
		),
		processRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_process_runs_total",
				Help: "Total number of supervised process runs",
			},
			[]string{"state"},
		),
		processDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "coordd_process_duration_seconds",
				Help:    "Supervised process run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		runningProcesses: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "coordd_running_processes",
				Help: "Current number of supervised processes",
			},
		),
		requests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coordd_requests_total",
				Help: "Total number of dispatched coordination requests",
			},
			[]string{"method", "outcome"},
		),
	}
}

// RecordInstanceRegistered counts a registration.
func (c *Collector) RecordInstanceRegistered(role string) {
	c.instancesRegistered.WithLabelValues(role).Inc()
}

// RecordInstanceUnregistered counts an unregistration.
func (c *Collector) RecordInstanceUnregistered() {
	c.instancesUnregistered.Inc()
}

// RecordHeartbeat counts a heartbeat.
func (c *Collector) RecordHeartbeat(status string) {
	c.heartbeats.WithLabelValues(status).Inc()
}

// SetInstanceCount sets the instance gauge for a status.
func (c *Collector) SetInstanceCount(status string, count int) {
	c.instanceCount.WithLabelValues(status).Set(float64(count))
}

// RecordTaskAssigned counts a task creation.
func (c *Collector) RecordTaskAssigned(kind, assigned string) {
	c.tasksAssigned.WithLabelValues(kind, assigned).Inc()
}

// RecordTaskStatusChange counts a status update.
func (c *Collector) RecordTaskStatusChange(status string) {
	c.taskStatusChanges.WithLabelValues(status).Inc()
}

// RecordTaskRegression counts a backward status transition.
func (c *Collector) RecordTaskRegression() {
	c.taskRegressions.Inc()
}

// RecordClaimGranted counts a granted claim.
func (c *Collector) RecordClaimGranted(kind, operation string) {
	c.claimsGranted.WithLabelValues(kind, operation).Inc()
}

// RecordClaimRefused counts a refused claim.
func (c *Collector) RecordClaimRefused(kind, operation string) {
	c.claimsRefused.WithLabelValues(kind, operation).Inc()
}

// RecordClaimReleased counts a released claim.
func (c *Collector) RecordClaimReleased(kind string) {
	c.claimsReleased.WithLabelValues(kind).Inc()
}

// SetActiveClaims sets the live claim gauge.
func (c *Collector) SetActiveClaims(count int) {
	c.activeClaims.Set(float64(count))
}

// RecordProcessRun records a finished supervised run.
func (c *Collector) RecordProcessRun(state string, duration time.Duration) {
	c.processRuns.WithLabelValues(state).Inc()
	c.processDuration.Observe(duration.Seconds())
}

// SetRunningProcesses sets the running process gauge.
func (c *Collector) SetRunningProcesses(count int) {
	c.runningProcesses.Set(float64(count))
}

// RecordRequest counts a dispatched request.
func (c *Collector) RecordRequest(method, outcome string) {
	c.requests.WithLabelValues(method, outcome).Inc()
}
