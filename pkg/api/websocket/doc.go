// Package websocket streams live coordination and process events to
// dashboard clients over WebSocket connections.
package websocket
