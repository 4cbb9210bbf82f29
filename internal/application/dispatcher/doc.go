// Package dispatcher implements the request dispatcher: a flat namespace
// of named coordination requests routed through an explicit table of typed
// handlers. Each handler decodes and fully validates its parameter shape
// before any store is touched, so a failed request never partially
// mutates state.
package dispatcher
