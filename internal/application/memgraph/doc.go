// Package memgraph implements the memory graph store: a small knowledge
// base of named fact entities with append-only observations and directed,
// typed relations between them. Search is case-insensitive substring
// matching across name, type and observation text.
package memgraph
