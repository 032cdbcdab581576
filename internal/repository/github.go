package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/temper-mc/prforum/internal/config"
	"github.com/temper-mc/prforum/models"
)

// GitHub talks to the REST API on behalf of the configured repository.
type GitHub struct {
	client *gogithub.Client
	owner  string
	repo   string
}

// NewGitHub creates a GitHub client authenticated with the configured token.
func NewGitHub(cfg config.GitHubConfig) *GitHub {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	return newGitHub(gogithub.NewClient(tc), cfg.Owner, cfg.Repo)
}

func newGitHub(client *gogithub.Client, owner, repo string) *GitHub {
	return &GitHub{client: client, owner: owner, repo: repo}
}

// FullName returns "owner/repo".
func (g *GitHub) FullName() string { return g.owner + "/" + g.repo }

// GetPullRequest fetches a pull request and converts it to a snapshot.
func (g *GitHub) GetPullRequest(ctx context.Context, number int) (models.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, number)
	if err != nil {
		return models.PullRequest{}, fmt.Errorf("getting pull request #%d on %s: %w", number, g.FullName(), err)
	}
	return models.PullRequest{
		Number:   pr.GetNumber(),
		Title:    pr.GetTitle(),
		Author:   pr.GetUser().GetLogin(),
		Draft:    pr.GetDraft(),
		MergedBy: pr.GetMergedBy().GetLogin(),
		URL:      pr.GetHTMLURL(),
	}, nil
}

// MergePullRequest merges pull request number with a single API call.
func (g *GitHub) MergePullRequest(ctx context.Context, number int, opts MergeOptions) (MergeResult, error) {
	method := opts.Method
	if method == "" {
		method = MergeMethodMerge
	}
	res, _, err := g.client.PullRequests.Merge(ctx, g.owner, g.repo, number, opts.Message, &gogithub.PullRequestOptions{
		CommitTitle: opts.Title,
		MergeMethod: string(method),
	})
	if err != nil {
		return MergeResult{}, fmt.Errorf("merging pull request #%d: %s", number, apiMessage(err))
	}
	if !res.GetMerged() {
		return MergeResult{}, fmt.Errorf("merging pull request #%d: %s", number, res.GetMessage())
	}
	return MergeResult{SHA: res.GetSHA(), Message: res.GetMessage()}, nil
}

// CheckAccess verifies that the token can read the repository.
func (g *GitHub) CheckAccess(ctx context.Context) error {
	r, resp, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("repository %s not found or not visible to the token", g.FullName())
		}
		return fmt.Errorf("getting repository %s: %w", g.FullName(), err)
	}
	if !r.GetPermissions()["push"] {
		return fmt.Errorf("token cannot push to %s; merges will fail", g.FullName())
	}
	return nil
}

// apiMessage extracts GitHub's human readable reason from an API error.
func apiMessage(err error) string {
	if ghErr, ok := err.(*gogithub.ErrorResponse); ok {
		msg := ghErr.Message
		for _, e := range ghErr.Errors {
			if e.Message != "" {
				msg += "; " + e.Message
			}
		}
		if msg != "" {
			return strings.TrimSpace(msg)
		}
	}
	return err.Error()
}
