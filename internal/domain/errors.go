// Package domain defines the core types, interfaces, and errors shared by
// the branch reconciliation engine. This package has no external
// dependencies and represents the innermost layer of the architecture.
package domain

import "errors"

// Sentinel errors for the reconciliation engine. A benign fetch failure
// and an empty cherry-pick are intentionally absent here because neither
// ever surfaces as a Go error value.
var (
	// ErrPreconditionViolation names the precondition-violation error kind
	// (HEAD detached at entry, or no author/committer identity). The engine
	// reports those cases with ErrDetachedHead and ErrIdentityMissing,
	// which do not wrap this value; nothing in this module returns it.
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrVcsInvocation wraps any unexpected failure from a VcsDriver
	// operation (add, commit, checkout, cherry-pick beyond empty-pick,
	// branch delete, diff). Fatal; propagated after Phase E cleanup runs.
	ErrVcsInvocation = errors.New("vcs operation failed")

	// ErrDetachedHead indicates the repository's HEAD is not on a named
	// branch at reconcile entry, a specific PreconditionViolation.
	ErrDetachedHead = errors.New("HEAD is detached")

	// ErrIdentityMissing indicates the Staging component was built without
	// an author/committer identity, a specific PreconditionViolation.
	ErrIdentityMissing = errors.New("commit identity not configured")

	// ErrTempBranchExists indicates the reserved temp branch name already
	// existed when the engine went to rebuild it. Recoverable by deleting
	// it, which the engine does automatically; this only surfaces as a
	// returned error when that deletion itself fails.
	ErrTempBranchExists = errors.New("temp branch already exists")
)
