package domain

import "time"

// ResourceKind names the category of a lockable resource.
type ResourceKind string

const (
	ResourceBranch      ResourceKind = "branch"
	ResourceFile        ResourceKind = "file"
	ResourceIssue       ResourceKind = "issue"
	ResourcePullRequest ResourceKind = "pull-request"
)

// Valid reports whether the kind is one of the known resource kinds.
func (k ResourceKind) Valid() bool {
	switch k {
	case ResourceBranch, ResourceFile, ResourceIssue, ResourcePullRequest:
		return true
	}
	return false
}

// ResourceOperation is the operation a claim authorizes on a resource.
type ResourceOperation string

const (
	OperationRead         ResourceOperation = "read"
	OperationWrite        ResourceOperation = "write"
	OperationDelete       ResourceOperation = "delete"
	OperationMerge        ResourceOperation = "merge"
	OperationBranchCreate ResourceOperation = "branch-create"
)

// Valid reports whether the operation is one of the known operations.
func (o ResourceOperation) Valid() bool {
	switch o {
	case OperationRead, OperationWrite, OperationDelete, OperationMerge, OperationBranchCreate:
		return true
	}
	return false
}

// ResourceClaim is a lease granting one instance permission to perform an
// operation on a named resource.
type ResourceClaim struct {
	ID        string            `json:"id"`
	Kind      ResourceKind      `json:"kind"`
	Resource  string            `json:"resource"`
	Holder    string            `json:"holder"`
	Operation ResourceOperation `json:"operation"`
	ClaimedAt time.Time         `json:"claimed_at"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

// Expired reports whether the claim's lease has lapsed at the given moment.
// Claims without an expiry never expire.
func (c *ResourceClaim) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}
