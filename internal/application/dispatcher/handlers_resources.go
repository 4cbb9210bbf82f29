package dispatcher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/opsforge/coordd/pkg/domain"
)

// ClaimResourceParams is the claim_resource request payload. TTLSeconds of
// zero means the claim never expires.
type ClaimResourceParams struct {
	Kind       domain.ResourceKind      `json:"kind"`
	ResourceID string                   `json:"resource_id"`
	InstanceID string                   `json:"instance_id"`
	Operation  domain.ResourceOperation `json:"operation"`
	TTLSeconds int                      `json:"ttl_seconds,omitempty"`
}

// ClaimResourceResult is the structured outcome of a claim. A refusal is
// not an error; ConflictsWith lists every holder in the way.
type ClaimResourceResult struct {
	Claimed       bool     `json:"claimed"`
	ConflictsWith []string `json:"conflicts_with,omitempty"`
}

func (d *Dispatcher) handleClaimResource(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[ClaimResourceParams](params)
	if err != nil {
		return nil, err
	}
	if !p.Kind.Valid() {
		return nil, domain.NewValidation("kind", "must be one of branch, file, issue, pull-request")
	}
	if p.ResourceID == "" {
		return nil, domain.NewValidation("resource_id", "required")
	}
	if p.InstanceID == "" {
		return nil, domain.NewValidation("instance_id", "required")
	}
	if !p.Operation.Valid() {
		return nil, domain.NewValidation("operation", "must be one of read, write, delete, merge, branch-create")
	}
	if p.TTLSeconds < 0 {
		return nil, domain.NewValidation("ttl_seconds", "must not be negative")
	}

	result := d.locks.Claim(ctx, p.Kind, p.ResourceID, p.InstanceID, p.Operation,
		time.Duration(p.TTLSeconds)*time.Second)
	return ClaimResourceResult{
		Claimed:       result.Granted,
		ConflictsWith: result.ConflictsWith,
	}, nil
}

// ReleaseResourceParams is the release_resource request payload.
type ReleaseResourceParams struct {
	Kind       domain.ResourceKind `json:"kind"`
	ResourceID string              `json:"resource_id"`
	InstanceID string              `json:"instance_id"`
}

// ReleaseResourceResult reports whether a claim was actually removed.
type ReleaseResourceResult struct {
	Released bool `json:"released"`
}

func (d *Dispatcher) handleReleaseResource(ctx context.Context, params json.RawMessage) (any, error) {
	p, err := decode[ReleaseResourceParams](params)
	if err != nil {
		return nil, err
	}
	if !p.Kind.Valid() {
		return nil, domain.NewValidation("kind", "must be one of branch, file, issue, pull-request")
	}
	if p.ResourceID == "" {
		return nil, domain.NewValidation("resource_id", "required")
	}
	if p.InstanceID == "" {
		return nil, domain.NewValidation("instance_id", "required")
	}

	released := d.locks.Release(ctx, p.Kind, p.ResourceID, p.InstanceID)
	return ReleaseResourceResult{Released: released}, nil
}
