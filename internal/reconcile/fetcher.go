// Package reconcile implements the branch reconciliation engine: Fetcher,
// Staging, and the Reconciler state machine built on top of domain.VcsDriver.
package reconcile

import (
	"context"

	"github.com/MyCarrier-DevOps/branchkeeper/internal/domain"
)

// GitFetcher is the default Fetcher, wrapping a domain.VcsDriver.
type GitFetcher struct {
	driver domain.VcsDriver
}

// NewFetcher builds a Fetcher bound to driver.
func NewFetcher(driver domain.VcsDriver) *GitFetcher {
	return &GitFetcher{driver: driver}
}

// TryFetch attempts to bring ref into the local origin/<ref> tracking ref.
// It never raises: any failure (ref not found, network error, permission
// denial) is reported as false — remote-branch existence is informational,
// not a precondition.
func (f *GitFetcher) TryFetch(ctx context.Context, ref string) bool {
	return f.driver.Fetch(ctx, ref) == nil
}
