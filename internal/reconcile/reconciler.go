package reconcile

import (
	"context"
	"fmt"

	"github.com/MyCarrier-DevOps/branchkeeper/internal/domain"
)

// GitReconciler implements the branch reconciliation state machine: stage
// working changes, resolve the base, rebuild a scratch branch on top of
// it, then decide whether the target branch needs to be created, updated,
// or left alone. Every transition failure routes through the Phase E
// cleanup step before the error is returned.
type GitReconciler struct {
	driver  domain.VcsDriver
	fetcher domain.Fetcher
	staging domain.Staging
}

// NewReconciler builds a Reconciler from its three dependencies, in
// VcsDriver ← Fetcher ← Staging ← Reconciler order.
func NewReconciler(driver domain.VcsDriver, fetcher domain.Fetcher, staging domain.Staging) *GitReconciler {
	return &GitReconciler{driver: driver, fetcher: fetcher, staging: staging}
}

// CreateOrUpdateBranch runs one reconcile invocation. The engine never
// logs; it surfaces typed failures to the caller and restores HEAD to the
// original working base branch on every exit path.
func (r *GitReconciler) CreateOrUpdateBranch(ctx context.Context, req domain.ReconcileRequest) (outcome domain.ReconcileOutcome, err error) {
	workingBase, err := r.driver.SymbolicRef(ctx)
	if err != nil {
		return domain.ReconcileOutcome{}, err
	}

	base := req.BaseName
	if base == "" {
		base = workingBase
	}
	switchingBase := workingBase != base

	// Captured before Staging runs, so it excludes the staged commit and
	// reflects only commits already on the working base at entry.
	preStagingTip, err := r.driver.RevParse(ctx, workingBase)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("resolve working base %s: %w", workingBase, err)
	}

	tempBranch := domain.TempBranchName(req.BranchName)

	defer func() {
		if cleanupErr := r.cleanup(ctx, tempBranch, workingBase); cleanupErr != nil && err == nil {
			err = cleanupErr
		}
	}()

	// Phase A — snapshot working changes.
	staged, stageErr := r.staging.StageAllChanges(ctx, req.CommitMessage, req.Signoff)
	if stageErr != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: stage working changes: %w", domain.ErrVcsInvocation, stageErr)
	}

	// Phase B — resolve base.
	r.fetcher.TryFetch(ctx, base)
	baseRemoteRef := "origin/" + base
	baseTip, err := r.driver.RevParse(ctx, baseRemoteRef)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: resolve %s: %w", domain.ErrVcsInvocation, baseRemoteRef, err)
	}
	if switchingBase {
		if err := r.driver.Checkout(ctx, base, baseTip); err != nil {
			return domain.ReconcileOutcome{}, fmt.Errorf("%w: switch to base %s: %w", domain.ErrVcsInvocation, base, err)
		}
	}

	// Phase C — construct the candidate branch tip on TempBranch. Its
	// presence at this point is recoverable by deletion, not fatal — but a
	// failed deletion is, so it's named explicitly rather than left to
	// ResetAndCheckout's own silent delete-and-recreate.
	if exists, err := r.driver.BranchExists(ctx, tempBranch); err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: check temp branch: %w", domain.ErrVcsInvocation, err)
	} else if exists {
		if err := r.driver.BranchDelete(ctx, tempBranch, true); err != nil {
			return domain.ReconcileOutcome{}, fmt.Errorf("%w: %w: delete pre-existing temp branch: %w", domain.ErrTempBranchExists, domain.ErrVcsInvocation, err)
		}
	}
	if err := r.driver.ResetAndCheckout(ctx, tempBranch, baseTip); err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: build temp branch: %w", domain.ErrVcsInvocation, err)
	}

	// Replay the working base's commits that origin/<base> lacks, in both
	// modes: with an unchanged base these include staging commits left on
	// the working base by earlier runs. baseTip may have advanced
	// independently of the working branch, so this is a graph-based range
	// (ancestor..tip), not a linear walk — see CommitsBetween.
	workflowCommits, err := r.driver.CommitsBetween(ctx, baseTip, preStagingTip)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: enumerate workflow commits: %w", domain.ErrVcsInvocation, err)
	}
	for _, c := range workflowCommits {
		if _, err := r.driver.CherryPick(ctx, c, true); err != nil {
			return domain.ReconcileOutcome{}, fmt.Errorf("%w: replay %s: %w", domain.ErrVcsInvocation, c, err)
		}
	}

	if staged.HadChanges {
		if _, err := r.driver.CherryPick(ctx, staged.StagedCommit, true); err != nil {
			return domain.ReconcileOutcome{}, fmt.Errorf("%w: cherry-pick staged commit: %w", domain.ErrVcsInvocation, err)
		}
	}

	tempTip, err := r.driver.RevParse(ctx, tempBranch)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: resolve temp branch tip: %w", domain.ErrVcsInvocation, err)
	}

	// Phase D — decide create vs update vs none against the remote PR branch.
	prExists := r.fetcher.TryFetch(ctx, req.BranchName)
	if !prExists {
		diffsFromBase, err := r.driver.HasDiff(ctx, tempTip, baseTip)
		if err != nil {
			return domain.ReconcileOutcome{}, fmt.Errorf("%w: diff temp branch against base: %w", domain.ErrVcsInvocation, err)
		}
		if !diffsFromBase {
			return domain.ReconcileOutcome{Action: domain.ActionNone, ResolvedBase: base}, nil
		}
		if err := r.driver.SetBranchRef(ctx, req.BranchName, tempTip); err != nil {
			return domain.ReconcileOutcome{}, fmt.Errorf("%w: point %s at temp branch: %w", domain.ErrVcsInvocation, req.BranchName, err)
		}
		return domain.ReconcileOutcome{Action: domain.ActionCreated, HasDiffWithBase: true, ResolvedBase: base}, nil
	}

	remoteBranchRef := "origin/" + req.BranchName
	remoteTip, err := r.driver.RevParse(ctx, remoteBranchRef)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: resolve %s: %w", domain.ErrVcsInvocation, remoteBranchRef, err)
	}

	treeDiffersFromRemote, err := r.driver.HasDiff(ctx, tempTip, remoteTip)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: diff temp branch against %s: %w", domain.ErrVcsInvocation, remoteBranchRef, err)
	}
	if !treeDiffersFromRemote {
		// Tree-identical rebuilds are treated as unchanged: re-running with
		// no new content must be idempotent at the tree level, regardless of
		// the rebuilt commit's hash.
		return domain.ReconcileOutcome{Action: domain.ActionNone, ResolvedBase: base}, nil
	}

	if err := r.driver.SetBranchRef(ctx, req.BranchName, tempTip); err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: point %s at temp branch: %w", domain.ErrVcsInvocation, req.BranchName, err)
	}
	diffsFromBase, err := r.driver.HasDiff(ctx, tempTip, baseTip)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("%w: diff temp branch against base: %w", domain.ErrVcsInvocation, err)
	}
	return domain.ReconcileOutcome{Action: domain.ActionUpdated, HasDiffWithBase: diffsFromBase, ResolvedBase: base}, nil
}

// cleanup is Phase E: delete TempBranch if it exists and restore HEAD to
// workingBase. It runs on every exit path, success or failure. The staging
// commit made in Phase A is not rewound: it stays on workingBase.
func (r *GitReconciler) cleanup(ctx context.Context, tempBranch, workingBase string) error {
	exists, err := r.driver.BranchExists(ctx, tempBranch)
	if err != nil {
		return fmt.Errorf("%w: check temp branch: %w", domain.ErrVcsInvocation, err)
	}
	if exists {
		if err := r.driver.BranchDelete(ctx, tempBranch, true); err != nil {
			return fmt.Errorf("%w: delete temp branch: %w", domain.ErrVcsInvocation, err)
		}
	}

	if err := r.driver.Checkout(ctx, workingBase, ""); err != nil {
		return fmt.Errorf("%w: restore working base %s: %w", domain.ErrVcsInvocation, workingBase, err)
	}
	return nil
}
