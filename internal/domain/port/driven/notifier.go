package driven

import (
	"context"

	"github.com/mittenbot/mitten/internal/domain/model"
)

// Notifier defines the driven port for delivering commit notifications.
// Delivery is best-effort: implementations return an error on failure but
// callers do not retry.
type Notifier interface {
	// Notify delivers a notification for a single new commit. info provides
	// repository metadata for the author block and may be nil when the
	// metadata fetch failed.
	Notify(ctx context.Context, commit model.Commit, info *model.RepoInfo) error

	// NotifyWatching announces that a repo/branch finished its
	// initialization fetch with commitCount commits recorded. Only called
	// when the init-notification toggle is on.
	NotifyWatching(ctx context.Context, repo model.TrackedRepo, commitCount int) error

	// Probe verifies the notification target is reachable without posting a
	// message. Used by the optional startup connectivity test.
	Probe(ctx context.Context) error
}
