package domain

import "time"

// InstanceRole identifies what kind of participant an instance is.
type InstanceRole string

const (
	RoleCoordinator     InstanceRole = "coordinator"
	RoleWorkerDeveloper InstanceRole = "worker-developer"
	RoleWorkerReviewer  InstanceRole = "worker-reviewer"
	RoleWorkerTester    InstanceRole = "worker-tester"
)

// Valid reports whether the role is one of the known roles.
func (r InstanceRole) Valid() bool {
	switch r {
	case RoleCoordinator, RoleWorkerDeveloper, RoleWorkerReviewer, RoleWorkerTester:
		return true
	}
	return false
}

// InstanceStatus is the caller-driven liveness status of an instance.
type InstanceStatus string

const (
	InstanceStatusIdle    InstanceStatus = "idle"
	InstanceStatusBusy    InstanceStatus = "busy"
	InstanceStatusOffline InstanceStatus = "offline"
)

// Valid reports whether the status is one of the known statuses.
func (s InstanceStatus) Valid() bool {
	switch s {
	case InstanceStatusIdle, InstanceStatusBusy, InstanceStatusOffline:
		return true
	}
	return false
}

// Instance is a registered coordination participant.
type Instance struct {
	ID           string         `json:"id"`
	Role         InstanceRole   `json:"role"`
	Status       InstanceStatus `json:"status"`
	Capabilities []string       `json:"capabilities"`
	LastSeen     time.Time      `json:"last_seen"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// HasCapability reports whether the instance declared the given tag.
func (i *Instance) HasCapability(tag string) bool {
	for _, c := range i.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// ActiveAt reports whether the instance's heartbeat is fresh with respect
// to the liveness window at the given moment.
func (i *Instance) ActiveAt(now time.Time, livenessTimeout time.Duration) bool {
	return now.Sub(i.LastSeen) < livenessTimeout
}
