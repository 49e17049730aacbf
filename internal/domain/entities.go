// Package domain defines the core types, interfaces, and errors shared by
// the branch reconciliation engine. This package has no external
// dependencies and represents the innermost layer of the architecture.
package domain

// CommitID is an opaque, content-addressed commit identifier (hex hash
// semantics). Equality is by value.
type CommitID string

// Empty reports whether the CommitID carries no value, e.g. when a ref
// could not be resolved.
func (c CommitID) Empty() bool {
	return c == ""
}

// RefKind distinguishes the three ref subkinds that matter to the engine.
type RefKind int

const (
	// RefKindLocalBranch is a named local branch.
	RefKindLocalBranch RefKind = iota
	// RefKindRemoteBranch is a remote-tracking branch, canonically
	// "origin/<name>".
	RefKindRemoteBranch
	// RefKindDetached is the temporary staging position HEAD may occupy
	// mid-reconcile; it must never be visible to callers at entry or exit.
	RefKindDetached
)

// Ref is a named pointer into the commit DAG.
type Ref struct {
	Name string
	Kind RefKind
}

// WorkingTreeState is the derived-on-demand snapshot of the working tree.
type WorkingTreeState struct {
	Head            CommitID
	TrackedModified []string
	Untracked       []string
	Dirty           bool
}

// BranchDescriptor describes a branch's local/remote presence.
type BranchDescriptor struct {
	Name              string
	RemoteCounterpart string
	ExistsLocally     bool
	ExistsOnRemote    bool
}

// Action is the tagged outcome discriminator the caller acts on.
type Action int

const (
	// ActionNone means no local branch was created or changed in a way the
	// caller should push.
	ActionNone Action = iota
	// ActionCreated means a brand-new local branch now exists, ready to be
	// force-pushed.
	ActionCreated
	// ActionUpdated means an existing local branch was rewound to a new
	// tip, ready to be force-pushed.
	ActionUpdated
)

// String renders the Action the way callers expect to see it (e.g. in CLI
// JSON output): "none", "created", or "updated".
func (a Action) String() string {
	switch a {
	case ActionCreated:
		return "created"
	case ActionUpdated:
		return "updated"
	default:
		return "none"
	}
}

// ReconcileRequest is the input to Reconciler.CreateOrUpdateBranch.
type ReconcileRequest struct {
	// CommitMessage is used for the staging commit, if one is made.
	CommitMessage string

	// BaseName is the base branch name. Empty means "use the current
	// branch as the base" (legacy mode); otherwise the base may differ
	// from the working branch the invocation started on.
	BaseName string

	// BranchName is the PR branch to create or update.
	BranchName string

	// Signoff adds a Signed-off-by trailer to the staging commit.
	Signoff bool
}

// ReconcileOutcome is the result of a reconcile invocation.
type ReconcileOutcome struct {
	Action Action

	// HasDiffWithBase is meaningful only when Action != ActionNone.
	HasDiffWithBase bool

	// ResolvedBase is the base branch actually used. Equal to the
	// request's BaseName when it was non-empty; otherwise the working
	// branch the invocation started on.
	ResolvedBase string
}

// TempBranchName derives the reserved scratch branch name for branch,
// deterministically, so a leftover temp branch from a prior aborted run is
// always recognizable and removable.
func TempBranchName(branch string) string {
	return branch + "-temp-branch"
}
