// Package http provides the HTTP API of the coordination daemon: the
// generic named-request dispatch endpoint, convenience read endpoints for
// dashboards, health checks, Prometheus metrics and the websocket event
// stream mount point.
package http
