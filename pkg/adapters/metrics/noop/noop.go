// Package noop provides a metrics collector that discards everything.
// Used in tests, where the Prometheus collector's global registration
// would collide across cases.
package noop

import "time"

// Collector implements MetricsCollector as no-ops.
type Collector struct{}

// NewCollector creates a no-op metrics collector.
func NewCollector() *Collector {
	return &Collector{}
}

func (*Collector) RecordInstanceRegistered(role string) {}

func (*Collector) RecordInstanceUnregistered() {}

func (*Collector) RecordHeartbeat(status string) {}

func (*Collector) SetInstanceCount(status string, n int) {}

func (*Collector) RecordTaskAssigned(kind, assigned string) {}

func (*Collector) RecordTaskStatusChange(status string) {}

func (*Collector) RecordTaskRegression() {}

func (*Collector) RecordClaimGranted(kind, op string) {}

func (*Collector) RecordClaimRefused(kind, op string) {}

func (*Collector) RecordClaimReleased(kind string) {}

func (*Collector) SetActiveClaims(n int) {}

func (*Collector) RecordProcessRun(state string, d time.Duration) {}

func (*Collector) SetRunningProcesses(n int) {}

func (*Collector) RecordRequest(method, outcome string) {}
