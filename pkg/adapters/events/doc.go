// Package events provides event bus implementations.
//
// Implementations:
//   - redis: Redis Streams mirror for out-of-process consumers
//   - memory: In-process fan-out (default, and for testing)
package events
