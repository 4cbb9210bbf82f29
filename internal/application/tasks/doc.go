// Package tasks implements the task manager: creation of units of work,
// first-available worker lookup through the instance registry, status
// transitions with audit-friendly out-of-order recording, and read-only
// queries. Terminal tasks are mirrored to the task archive adapter.
package tasks
