package reconcile

import (
	"context"
	"fmt"

	"github.com/MyCarrier-DevOps/branchkeeper/internal/domain"
)

// GitStaging is the default Staging, wrapping a domain.VcsDriver.
type GitStaging struct {
	driver      domain.VcsDriver
	authorName  string
	authorEmail string
}

// NewStaging builds a Staging bound to driver, committing as authorName
// <authorEmail>.
func NewStaging(driver domain.VcsDriver, authorName, authorEmail string) *GitStaging {
	return &GitStaging{driver: driver, authorName: authorName, authorEmail: authorEmail}
}

// StageAllChanges captures the union of tracked modifications, staged
// changes, and untracked files in the working tree as a single commit.
//
// When the working tree has no effective change, it returns
// StagingResult{HadChanges: false} and leaves HEAD and the working tree
// untouched. Any VcsDriver failure during add or commit propagates as a
// fatal error — the tree is left in an indeterminate state and the caller
// must abort.
func (s *GitStaging) StageAllChanges(ctx context.Context, message string, signoff bool) (domain.StagingResult, error) {
	if s.authorName == "" || s.authorEmail == "" {
		return domain.StagingResult{}, domain.ErrIdentityMissing
	}

	dirty, err := s.driver.IsDirty(ctx, true)
	if err != nil {
		return domain.StagingResult{}, fmt.Errorf("check working tree: %w", err)
	}
	if !dirty {
		return domain.StagingResult{HadChanges: false}, nil
	}

	if err := s.driver.Add(ctx, "."); err != nil {
		return domain.StagingResult{}, fmt.Errorf("stage changes: %w", err)
	}

	commitID, err := s.driver.Commit(ctx, domain.CommitOptions{
		Message:     message,
		AuthorName:  s.authorName,
		AuthorEmail: s.authorEmail,
		Signoff:     signoff,
	})
	if err != nil {
		return domain.StagingResult{}, fmt.Errorf("create staged commit: %w", err)
	}

	return domain.StagingResult{HadChanges: true, StagedCommit: commitID}, nil
}
