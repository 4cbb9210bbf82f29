// Package supervisor implements the process supervisor: spawning external
// worker processes, racing their exit against a timeout, escalating from
// graceful to forced termination, and one-shot artifact builds. Every run
// produces a bounded result record; timeouts and spawn failures are
// expected operational outcomes, not errors.
package supervisor
