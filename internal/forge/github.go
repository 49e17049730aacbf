// Package forge opens or updates the pull request for a reconciled branch
// against GitHub. It is the broader automation that creates the pull
// request via a forge API — internal/reconcile never imports this
// package, and this package never imports internal/reconcile's VcsDriver.
package forge

import (
	"context"
	"fmt"

	"github.com/google/go-github/v79/github"
	"golang.org/x/oauth2"
)

// PullRequest describes the request to open or update.
type PullRequest struct {
	Owner string
	Repo  string
	Base  string
	Head  string
	Title string
	Body  string
}

// Client wraps the GitHub API client used to publish pull requests.
type Client struct {
	gh *github.Client
}

// New builds a Client authenticated with a static token. Token acquisition
// and rotation are the caller's concern; this package only consumes an
// already-resolved token.
func New(ctx context.Context, token string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{gh: github.NewClient(oauth2.NewClient(ctx, ts))}
}

// OpenOrUpdate opens a new pull request for req.Head against req.Base, or
// updates the title/body of an existing open one if a PR from req.Head
// against req.Base already exists. Returns the PR number.
func (c *Client) OpenOrUpdate(ctx context.Context, req PullRequest) (int, error) {
	existing, err := c.findOpenPR(ctx, req)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		update := &github.PullRequest{Title: &req.Title, Body: &req.Body}
		pr, _, err := c.gh.PullRequests.Edit(ctx, req.Owner, req.Repo, existing.GetNumber(), update)
		if err != nil {
			return 0, fmt.Errorf("update pull request #%d: %w", existing.GetNumber(), err)
		}
		return pr.GetNumber(), nil
	}

	pr, _, err := c.gh.PullRequests.Create(ctx, req.Owner, req.Repo, &github.NewPullRequest{
		Title: &req.Title,
		Body:  &req.Body,
		Head:  &req.Head,
		Base:  &req.Base,
	})
	if err != nil {
		return 0, fmt.Errorf("create pull request: %w", err)
	}
	return pr.GetNumber(), nil
}

func (c *Client) findOpenPR(ctx context.Context, req PullRequest) (*github.PullRequest, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, req.Owner, req.Repo, &github.PullRequestListOptions{
		State: "open",
		Head:  req.Owner + ":" + req.Head,
		Base:  req.Base,
	})
	if err != nil {
		return nil, fmt.Errorf("list pull requests: %w", err)
	}
	if len(prs) == 0 {
		return nil, nil
	}
	return prs[0], nil
}
