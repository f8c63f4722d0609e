package driven

import (
	"context"
	"time"

	"github.com/mittenbot/mitten/internal/domain/model"
)

// GitHubClient defines the driven port for reading commit data from GitHub.
type GitHubClient interface {
	// ListCommits returns commits on the given repo/branch with a commit
	// timestamp after since, ordered oldest to newest. A zero since fetches
	// the full history. An empty branch means the repository's default
	// branch. Pagination is handled by the implementation.
	ListCommits(ctx context.Context, repoFullName, branch string, since time.Time) ([]model.Commit, error)

	// FetchRepository returns repository-level metadata (display name, owner
	// avatar, HTML URL) for the notification author block.
	FetchRepository(ctx context.Context, repoFullName string) (*model.RepoInfo, error)
}
