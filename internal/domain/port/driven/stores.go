package driven

import (
	"context"
	"errors"
	"time"

	"github.com/mittenbot/mitten/internal/domain/model"
)

// ErrRepoNotFound indicates the requested tracked repo does not exist.
var ErrRepoNotFound = errors.New("tracked repo not found")

// TrackedRepoStore defines the driven port for tracked repo/branch
// persistence. The tracked set mirrors configuration: Sync upserts the
// configured pairs and prunes everything else.
type TrackedRepoStore interface {
	// Sync makes the stored tracked set exactly match the given repo/branch
	// pairs. New pairs are inserted with a zero LastCheckedAt; pairs absent
	// from the list are removed along with their dedup log entries. Existing
	// pairs keep their bookkeeping. Returns the number of added and removed
	// pairs.
	Sync(ctx context.Context, repos []model.TrackedRepo) (added, removed int, err error)

	// ListAll returns all tracked repo/branch pairs ordered by full name
	// then branch.
	ListAll(ctx context.Context) ([]model.TrackedRepo, error)

	// SetLastChecked advances the last-checked timestamp for a repo/branch.
	// Returns ErrRepoNotFound if the pair is not tracked.
	SetLastChecked(ctx context.Context, fullName, branch string, t time.Time) error
}

// CommitLog defines the driven port for the dedup log: the durable record of
// commit SHAs already surfaced per repo/branch.
type CommitLog interface {
	// Seen reports whether the SHA is already recorded for the repo/branch.
	Seen(ctx context.Context, fullName, branch, sha string) (bool, error)

	// Record adds one entry to the log. Recording an already-present
	// (repo, branch, SHA) is a no-op, keeping the at-most-once invariant.
	Record(ctx context.Context, rec model.CommitRecord) error

	// RecordAll adds a batch of entries in a single transaction. Used by the
	// initialization fetch to mark full history as seen.
	RecordAll(ctx context.Context, recs []model.CommitRecord) error

	// Count returns the number of recorded entries for a repo/branch.
	Count(ctx context.Context, fullName, branch string) (int, error)
}
