package domain

import "context"

// CommitOptions carries author/committer identity and message for a
// commit, plus an optional signoff trailer.
type CommitOptions struct {
	Message          string
	AuthorName       string
	AuthorEmail      string
	CommitterName    string
	CommitterEmail   string
	Signoff          bool
	AllowEmptyCommit bool
}

// CherryPickResult reports whether a cherry-pick landed a non-empty
// commit. An empty cherry-pick is recovered locally by the Reconciler,
// never surfaced as an error.
type CherryPickResult struct {
	CommitID CommitID
	Empty    bool
}

// VcsDriver is the abstract contract the engine depends on. It wraps a
// content-addressed version-control tool; the engine makes no assumption
// about the concrete implementation beyond this interface.
type VcsDriver interface {
	// Fetch refreshes refspecs from the default remote into local
	// tracking refs. Returns an error only on a failure the caller must
	// react to; Fetcher.TryFetch is the "never raises" wrapper around this.
	Fetch(ctx context.Context, refspecs ...string) error

	// Checkout switches HEAD to the local branch name. If name does not
	// exist locally, it is created at startPoint first (startPoint is
	// ignored when name already exists — this does not reset an existing
	// branch).
	Checkout(ctx context.Context, name string, startPoint CommitID) error

	// ResetAndCheckout force-creates or force-moves the local branch name
	// to hash and checks it out, discarding any prior tip name had. Used
	// to (re)build the reserved TempBranch fresh each reconcile at
	// origin/<base>.
	ResetAndCheckout(ctx context.Context, name string, hash CommitID) error

	// SetBranchRef force-creates or force-moves the local branch name to
	// hash without touching HEAD. Used to point branchName at the
	// finished TempBranch tip.
	SetBranchRef(ctx context.Context, name string, hash CommitID) error

	// SymbolicRef returns the branch name HEAD currently refers to, or
	// ErrDetachedHead if HEAD is detached.
	SymbolicRef(ctx context.Context) (string, error)

	// RevParse resolves rev (a branch, tag, or ref expression) to a
	// CommitID. Returns a zero CommitID and an error if rev is unresolvable.
	RevParse(ctx context.Context, rev string) (CommitID, error)

	// IsDirty reports whether the working tree has uncommitted changes.
	// When includeUntracked is true, untracked files also count.
	IsDirty(ctx context.Context, includeUntracked bool) (bool, error)

	// Add stages the given paths. A single "." stages everything,
	// tracked and untracked alike.
	Add(ctx context.Context, paths ...string) error

	// Commit creates a commit from the current index with opts, returning
	// its CommitID.
	Commit(ctx context.Context, opts CommitOptions) (CommitID, error)

	// CherryPick cherry-picks id onto HEAD with allow-empty semantics.
	CherryPick(ctx context.Context, id CommitID, allowEmpty bool) (CherryPickResult, error)

	// BranchDelete deletes the local branch name. force allows deleting an
	// unmerged branch (required for the reserved TempBranch).
	BranchDelete(ctx context.Context, name string, force bool) error

	// BranchExists reports whether a local branch named name exists.
	BranchExists(ctx context.Context, name string) (bool, error)

	// DiffNameOnly returns the set of paths that differ between a and b.
	// Non-empty iff the trees differ.
	DiffNameOnly(ctx context.Context, a, b CommitID) ([]string, error)

	// HasDiff is a boolean shortcut for len(DiffNameOnly(...)) > 0.
	HasDiff(ctx context.Context, a, b CommitID) (bool, error)

	// CommitsBetween returns the commits reachable from tip but not from
	// ancestor, oldest first — the workflow commits introduced during the
	// automation run that get replayed onto the rebuilt branch. ancestor is
	// not assumed to lie on tip's first-parent line: the base may have
	// advanced independently of the working branch.
	CommitsBetween(ctx context.Context, ancestor, tip CommitID) ([]CommitID, error)

	// Push publishes refspec to the default remote. force enables
	// non-fast-forward updates, required after rebuild.
	Push(ctx context.Context, refspec string, force bool) error

	// StashSave creates a temporary stash including untracked files and
	// returns whether anything was stashed.
	StashSave(ctx context.Context, message string) (bool, error)

	// StashPop restores the most recent stash created by StashSave.
	StashPop(ctx context.Context) error
}

// Fetcher attempts to bring a remote ref into a local tracking ref. It
// never raises; failure is informational only.
type Fetcher interface {
	TryFetch(ctx context.Context, ref string) bool
}

// StagingResult is the outcome of Staging.StageAllChanges.
type StagingResult struct {
	HadChanges   bool
	StagedCommit CommitID
}

// Staging produces a single commit capturing the union of tracked
// modifications, staged changes, and untracked files in the working tree.
type Staging interface {
	StageAllChanges(ctx context.Context, message string, signoff bool) (StagingResult, error)
}

// Reconciler creates or updates a pull request branch from a working
// tree's changes and workflow commits.
type Reconciler interface {
	CreateOrUpdateBranch(ctx context.Context, req ReconcileRequest) (ReconcileOutcome, error)
}
