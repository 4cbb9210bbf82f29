package domain

import "time"

// EventType names a coordination event published on the event bus.
type EventType string

const (
	EventInstanceRegistered   EventType = "instance.registered"
	EventInstanceHeartbeat    EventType = "instance.heartbeat"
	EventInstanceUnregistered EventType = "instance.unregistered"
	EventInstanceOffline      EventType = "instance.offline"

	EventTaskAssigned EventType = "task.assigned"
	EventTaskUpdated  EventType = "task.updated"

	EventClaimGranted  EventType = "claim.granted"
	EventClaimRefused  EventType = "claim.refused"
	EventClaimReleased EventType = "claim.released"
	EventClaimExpired  EventType = "claim.expired"

	EventProcessStarted  EventType = "process.started"
	EventProcessFinished EventType = "process.finished"
)

// Event is a coordination event. Subject identifies the affected object
// (instance id, task id, resource key or process name).
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Subject   string         `json:"subject"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}
