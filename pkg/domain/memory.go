package domain

import "time"

// MemoryEntity is a named fact record in the memory graph. Observations are
// append-only: updates add to the list, never remove from it.
type MemoryEntity struct {
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Observations []string       `json:"observations"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Version      int            `json:"version"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// MemoryRelation is a directed, typed edge between two entity names.
type MemoryRelation struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	Type      string         `json:"type"`
	Strength  float64        `json:"strength,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Touches reports whether the relation references the named entity as
// either endpoint.
func (r *MemoryRelation) Touches(name string) bool {
	return r.From == name || r.To == name
}
