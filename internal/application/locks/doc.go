// Package locks implements the resource lock manager: exclusive and shared
// claims on named resources (branches, files, issues, pull requests),
// conflict detection against a fixed operation matrix, expiry sweeping,
// and one-pass release of everything an instance holds.
package locks
