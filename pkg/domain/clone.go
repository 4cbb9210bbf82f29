package domain

// The stores hand out copies of their records while the live entry keeps
// mutating under the store lock. A plain struct copy still shares map and
// slice headers with the live entry, so readers marshalling a copy would
// race a concurrent merge. Clone detaches everything mutable.

// Clone returns a copy of the instance detached from the registry's live
// entry.
func (i *Instance) Clone() Instance {
	cp := *i
	if i.Capabilities != nil {
		cp.Capabilities = append([]string(nil), i.Capabilities...)
	}
	cp.Metadata = cloneMetadata(i.Metadata)
	return cp
}

// Clone returns a copy of the task detached from the manager's live entry.
func (t *Task) Clone() Task {
	cp := *t
	cp.Metadata = cloneMetadata(t.Metadata)
	if t.Payload.Requirements != nil {
		cp.Payload.Requirements = append([]string(nil), t.Payload.Requirements...)
	}
	return cp
}

// Clone returns a copy of the entity detached from the store's live entry.
func (e *MemoryEntity) Clone() MemoryEntity {
	cp := *e
	if e.Observations != nil {
		cp.Observations = append([]string(nil), e.Observations...)
	}
	cp.Metadata = cloneMetadata(e.Metadata)
	return cp
}

// Clone returns a copy of the relation detached from the store's live
// entry.
func (r *MemoryRelation) Clone() MemoryRelation {
	cp := *r
	cp.Metadata = cloneMetadata(r.Metadata)
	return cp
}

func cloneMetadata(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
