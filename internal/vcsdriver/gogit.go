// Package vcsdriver implements domain.VcsDriver, the abstract contract the
// branch reconciliation engine depends on. Everything go-git's public
// porcelain API supports runs through go-git/v5; cherry-pick, stash and
// the ancestor..tip commit range (rev-list) are shelled out to the
// system git binary behind a small CommandExecutor seam.
package vcsdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/MyCarrier-DevOps/branchkeeper/internal/domain"
)

const defaultRemote = "origin"

// GoGitDriver implements domain.VcsDriver against a local repository.
type GoGitDriver struct {
	repo     *git.Repository
	path     string
	executor CommandExecutor
}

// New opens the repository at path and returns a GoGitDriver. An
// execCommandExecutor is used for the cherry-pick/stash/rev-list shim unless
// overridden with NewWithExecutor.
func New(path string) (*GoGitDriver, error) {
	return NewWithExecutor(path, NewExecCommandExecutor())
}

// NewWithExecutor is New with an injectable CommandExecutor, for tests.
func NewWithExecutor(path string, executor CommandExecutor) (*GoGitDriver, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", path, err)
	}
	return &GoGitDriver{repo: repo, path: path, executor: executor}, nil
}

// Fetch refreshes refspecs from origin into local tracking refs.
func (d *GoGitDriver) Fetch(ctx context.Context, refspecs ...string) error {
	specs := make([]config.RefSpec, 0, len(refspecs))
	for _, ref := range refspecs {
		specs = append(specs, config.RefSpec(fmt.Sprintf(
			"+refs/heads/%s:refs/remotes/%s/%s", ref, defaultRemote, ref,
		)))
	}
	err := d.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: defaultRemote,
		RefSpecs:   specs,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: fetch %v: %w", domain.ErrVcsInvocation, refspecs, err)
	}
	return nil
}

// Checkout switches HEAD to name, creating it at startPoint first when it
// does not yet exist locally. An existing branch is never reset.
func (d *GoGitDriver) Checkout(ctx context.Context, name string, startPoint domain.CommitID) error {
	wt, err := d.repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: worktree: %w", domain.ErrVcsInvocation, err)
	}

	exists, err := d.BranchExists(ctx, name)
	if err != nil {
		return err
	}

	opts := &git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}
	if !exists {
		opts.Create = true
		if !startPoint.Empty() {
			opts.Hash = plumbing.NewHash(string(startPoint))
		}
	}

	if err := wt.Checkout(opts); err != nil {
		return fmt.Errorf("%w: checkout %s: %w", domain.ErrVcsInvocation, name, err)
	}
	return nil
}

// ResetAndCheckout force-creates or force-moves the local branch name to
// hash and checks it out, discarding any prior tip name had.
func (d *GoGitDriver) ResetAndCheckout(ctx context.Context, name string, hash domain.CommitID) error {
	exists, err := d.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		if err := d.BranchDelete(ctx, name, true); err != nil {
			return err
		}
	}
	wt, err := d.repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: worktree: %w", domain.ErrVcsInvocation, err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Hash:   plumbing.NewHash(string(hash)),
		Create: true,
	}); err != nil {
		return fmt.Errorf("%w: checkout %s at %s: %w", domain.ErrVcsInvocation, name, hash, err)
	}
	return nil
}

// SetBranchRef force-creates or force-moves the local branch name to hash
// without touching HEAD.
func (d *GoGitDriver) SetBranchRef(_ context.Context, name string, hash domain.CommitID) error {
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(string(hash)))
	if err := d.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("%w: set branch ref %s: %w", domain.ErrVcsInvocation, name, err)
	}
	return nil
}

// SymbolicRef returns the branch name HEAD currently refers to.
func (d *GoGitDriver) SymbolicRef(_ context.Context) (string, error) {
	head, err := d.repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: head: %w", domain.ErrVcsInvocation, err)
	}
	if !head.Name().IsBranch() {
		return "", domain.ErrDetachedHead
	}
	return head.Name().Short(), nil
}

// RevParse resolves rev to a CommitID.
func (d *GoGitDriver) RevParse(_ context.Context, rev string) (domain.CommitID, error) {
	hash, err := d.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("%w: rev-parse %s: %w", domain.ErrVcsInvocation, rev, err)
	}
	return domain.CommitID(hash.String()), nil
}

// IsDirty reports whether the working tree has uncommitted changes.
func (d *GoGitDriver) IsDirty(_ context.Context, includeUntracked bool) (bool, error) {
	wt, err := d.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("%w: worktree: %w", domain.ErrVcsInvocation, err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("%w: status: %w", domain.ErrVcsInvocation, err)
	}
	if status.IsClean() {
		return false, nil
	}
	if includeUntracked {
		return true, nil
	}
	for _, fs := range status {
		if fs.Staging == git.Untracked && fs.Worktree == git.Untracked {
			continue
		}
		return true, nil
	}
	return false, nil
}

// Add stages paths. A single "." stages everything, tracked and untracked
// alike (go-git's AddGlob porcelain is the "add -A" equivalent).
func (d *GoGitDriver) Add(_ context.Context, paths ...string) error {
	wt, err := d.repo.Worktree()
	if err != nil {
		return fmt.Errorf("%w: worktree: %w", domain.ErrVcsInvocation, err)
	}
	for _, p := range paths {
		if p == "." || p == "" {
			if err := wt.AddGlob("."); err != nil {
				return fmt.Errorf("%w: add all: %w", domain.ErrVcsInvocation, err)
			}
			continue
		}
		if _, err := wt.Add(p); err != nil {
			return fmt.Errorf("%w: add %s: %w", domain.ErrVcsInvocation, p, err)
		}
	}
	return nil
}

// Commit creates a commit from the current index.
func (d *GoGitDriver) Commit(_ context.Context, opts domain.CommitOptions) (domain.CommitID, error) {
	wt, err := d.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: worktree: %w", domain.ErrVcsInvocation, err)
	}

	message := opts.Message
	if opts.Signoff {
		message = fmt.Sprintf("%s\n\nSigned-off-by: %s <%s>", message, opts.AuthorName, opts.AuthorEmail)
	}

	committerName, committerEmail := opts.CommitterName, opts.CommitterEmail
	if committerName == "" {
		committerName = opts.AuthorName
	}
	if committerEmail == "" {
		committerEmail = opts.AuthorEmail
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: opts.AllowEmptyCommit,
		Author: &object.Signature{
			Name:  opts.AuthorName,
			Email: opts.AuthorEmail,
		},
		Committer: &object.Signature{
			Name:  committerName,
			Email: committerEmail,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: commit: %w", domain.ErrVcsInvocation, err)
	}
	return domain.CommitID(hash.String()), nil
}

// BranchDelete deletes the local branch name. force is ignored: the branch
// is always deleted, merged or not.
func (d *GoGitDriver) BranchDelete(_ context.Context, name string, _ bool) error {
	ref := plumbing.NewBranchReferenceName(name)
	if err := d.repo.Storer.RemoveReference(ref); err != nil {
		return fmt.Errorf("%w: delete branch %s: %w", domain.ErrVcsInvocation, name, err)
	}
	// Best-effort: also drop any tracking config for the branch. Absence
	// of a config entry is not an error condition here.
	_ = d.repo.DeleteBranch(name)
	return nil
}

// BranchExists reports whether a local branch named name exists.
func (d *GoGitDriver) BranchExists(_ context.Context, name string) (bool, error) {
	_, err := d.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: resolve branch %s: %w", domain.ErrVcsInvocation, name, err)
	}
	return true, nil
}

// DiffNameOnly returns the set of paths that differ between a and b.
func (d *GoGitDriver) DiffNameOnly(_ context.Context, a, b domain.CommitID) ([]string, error) {
	changes, err := d.treeChanges(a, b)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(changes))
	for _, c := range changes {
		action, err := c.Action()
		if err != nil {
			return nil, fmt.Errorf("%w: diff action: %w", domain.ErrVcsInvocation, err)
		}
		if action == merkletrie.Delete {
			paths = append(paths, c.From.Name)
		} else {
			paths = append(paths, c.To.Name)
		}
	}
	return paths, nil
}

// HasDiff is a boolean shortcut for len(DiffNameOnly(...)) > 0.
func (d *GoGitDriver) HasDiff(ctx context.Context, a, b domain.CommitID) (bool, error) {
	changes, err := d.treeChanges(a, b)
	if err != nil {
		return false, err
	}
	return len(changes) > 0, nil
}

func (d *GoGitDriver) treeChanges(a, b domain.CommitID) (object.Changes, error) {
	treeA, err := d.treeFor(a)
	if err != nil {
		return nil, err
	}
	treeB, err := d.treeFor(b)
	if err != nil {
		return nil, err
	}
	changes, err := treeA.Diff(treeB)
	if err != nil {
		return nil, fmt.Errorf("%w: tree diff: %w", domain.ErrVcsInvocation, err)
	}
	return changes, nil
}

func (d *GoGitDriver) treeFor(id domain.CommitID) (*object.Tree, error) {
	commit, err := d.repo.CommitObject(plumbing.NewHash(string(id)))
	if err != nil {
		return nil, fmt.Errorf("%w: commit object %s: %w", domain.ErrVcsInvocation, id, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: tree of %s: %w", domain.ErrVcsInvocation, id, err)
	}
	return tree, nil
}

// CommitsBetween returns the commits reachable from tip but not from
// ancestor, oldest first. Shells out to the system git binary for a true
// graph-based set difference (ancestor..tip) rather than a parent-hash
// walk, since ancestor is not guaranteed to lie on tip's first-parent
// line — the base can advance independently of the working branch.
func (d *GoGitDriver) CommitsBetween(ctx context.Context, ancestor, tip domain.CommitID) ([]domain.CommitID, error) {
	if tip.Empty() || ancestor == tip {
		return nil, nil
	}

	rangeSpec := fmt.Sprintf("%s..%s", ancestor, tip)
	out, err := d.executor.Run(ctx, d.path, "git", "rev-list", "--reverse", rangeSpec)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: rev-list %s: %w: %s", domain.ErrVcsInvocation, rangeSpec, err, strings.TrimSpace(string(out)),
		)
	}

	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}

	lines := strings.Split(trimmed, "\n")
	ids := make([]domain.CommitID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, domain.CommitID(strings.TrimSpace(line)))
	}
	return ids, nil
}

// Push publishes refspec to origin.
func (d *GoGitDriver) Push(ctx context.Context, refspec string, force bool) error {
	spec := refspec
	if force {
		spec = "+" + spec
	}
	err := d.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: defaultRemote,
		RefSpecs:   []config.RefSpec{config.RefSpec(spec)},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: push %s: %w", domain.ErrVcsInvocation, refspec, err)
	}
	return nil
}

// CherryPick cherry-picks id onto HEAD with allow-empty semantics. go-git
// has no porcelain cherry-pick; this shells to the system git binary, the
// same seam the retrieved pack's CLI-wrapper git gateways use for it.
func (d *GoGitDriver) CherryPick(ctx context.Context, id domain.CommitID, allowEmpty bool) (domain.CherryPickResult, error) {
	before, err := d.RevParse(ctx, "HEAD")
	if err != nil {
		return domain.CherryPickResult{}, err
	}

	args := []string{"cherry-pick"}
	if allowEmpty {
		args = append(args, "--allow-empty", "--keep-redundant-commits")
	}
	args = append(args, string(id))

	out, err := d.executor.Run(ctx, d.path, "git", args...)
	if err != nil {
		return domain.CherryPickResult{}, fmt.Errorf(
			"%w: cherry-pick %s: %w: %s", domain.ErrVcsInvocation, id, err, strings.TrimSpace(string(out)),
		)
	}

	after, err := d.RevParse(ctx, "HEAD")
	if err != nil {
		return domain.CherryPickResult{}, err
	}

	empty, err := func() (bool, error) {
		has, err := d.HasDiff(ctx, before, after)
		if err != nil {
			return false, err
		}
		return !has, nil
	}()
	if err != nil {
		return domain.CherryPickResult{}, err
	}

	return domain.CherryPickResult{CommitID: after, Empty: empty}, nil
}

// StashSave creates a temporary stash including untracked files.
func (d *GoGitDriver) StashSave(ctx context.Context, message string) (bool, error) {
	out, err := d.executor.Run(ctx, d.path, "git", "stash", "push", "--include-untracked", "-m", message)
	if err != nil {
		return false, fmt.Errorf("%w: stash push: %w: %s", domain.ErrVcsInvocation, err, strings.TrimSpace(string(out)))
	}
	if strings.Contains(string(out), "No local changes to save") {
		return false, nil
	}
	return true, nil
}

// StashPop restores the most recent stash created by StashSave.
func (d *GoGitDriver) StashPop(ctx context.Context) error {
	out, err := d.executor.Run(ctx, d.path, "git", "stash", "pop")
	if err != nil {
		return fmt.Errorf("%w: stash pop: %w: %s", domain.ErrVcsInvocation, err, strings.TrimSpace(string(out)))
	}
	return nil
}
