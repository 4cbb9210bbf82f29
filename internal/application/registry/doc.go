// Package registry implements the instance registry: registration,
// heartbeats, unregistration with cascading claim release, filtered
// listing, and the first-available lookup the task manager uses for
// assignment. A background sweeper flips stale instances to offline.
package registry
