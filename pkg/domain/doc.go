// Package domain defines the core data model of the coordination daemon:
// instances, tasks, resource claims, memory graph entities and relations,
// supervised process specifications, coordination events, and the error
// taxonomy shared by all stores.
package domain
