// Package ports defines the adapter interfaces the application core depends
// on: the event bus, the task archive mirror, and the metrics collector.
// Concrete implementations live under pkg/adapters.
package ports
