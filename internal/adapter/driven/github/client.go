// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/mittenbot/mitten/internal/domain/model"
	"github.com/mittenbot/mitten/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. oauth2 static token transport when a token is configured; anonymous
//     otherwise (lower rate limits, still functional for public repos)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	httpClient := rateLimitClient
	if token != "" {
		httpClient = &http.Client{
			Transport: &oauth2.Transport{
				Base:   rateLimitClient.Transport,
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			},
		}
	}

	return &Client{gh: gh.NewClient(httpClient)}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// ListCommits retrieves commits on the given repo/branch with a commit
// timestamp strictly after since, ordered oldest to newest. A zero since
// fetches the full history; an empty branch uses the repository's default
// branch. It handles pagination automatically and maps go-github types to
// domain model types.
func (c *Client) ListCommits(ctx context.Context, repoFullName, branch string, since time.Time) ([]model.Commit, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.CommitsListOptions{
		SHA:   branch,
		Since: since,
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	var all []model.Commit

	for {
		commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing commits for %s (page %d): %w", repoFullName, opts.Page, err)
		}

		logRateLimit(resp, repoFullName, opts.Page, len(commits))

		for _, rc := range commits {
			commit := mapCommit(rc, repoFullName, branch)
			// The API's since filter is inclusive at second granularity;
			// keep only strictly newer commits so the boundary commit is
			// not re-examined every cycle.
			if !since.IsZero() && !commit.CommittedAt.After(since) {
				continue
			}
			all = append(all, commit)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	// GitHub returns newest first; callers want oldest to newest.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}

	return all, nil
}

// FetchRepository retrieves repository metadata for the notification author block.
func (c *Client) FetchRepository(ctx context.Context, repoFullName string) (*model.RepoInfo, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	r, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("fetching repository %s: %w", repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/info", 0, 1)

	return &model.RepoInfo{
		Name:           r.GetName(),
		OwnerAvatarURL: r.GetOwner().GetAvatarURL(),
		HTMLURL:        r.GetHTMLURL(),
	}, nil
}

// mapCommit converts a go-github RepositoryCommit to a domain model Commit.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapCommit(rc *gh.RepositoryCommit, repoFullName, branch string) model.Commit {
	// Prefer the git author name; fall back to the GitHub login for commits
	// authored via the web UI or with unmapped emails.
	authorName := rc.GetCommit().GetAuthor().GetName()
	if authorName == "" {
		authorName = rc.GetAuthor().GetLogin()
	}

	return model.Commit{
		SHA:             rc.GetSHA(),
		RepoFullName:    repoFullName,
		Branch:          branch,
		AuthorName:      authorName,
		AuthorAvatarURL: rc.GetAuthor().GetAvatarURL(),
		Message:         rc.GetCommit().GetMessage(),
		URL:             rc.GetHTMLURL(),
		CommittedAt:     rc.GetCommit().GetCommitter().GetDate().Time,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
