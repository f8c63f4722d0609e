package model

import "time"

// TrackedRepo is the unit of tracking: one repository/branch pair with its
// polling bookkeeping. A single repository may be tracked on multiple
// branches independently.
type TrackedRepo struct {
	ID       int64
	FullName string // "owner/name".
	Branch   string // Empty means the repository's default branch.
	// LastCheckedAt is the newest commit timestamp seen so far. Zero means
	// the repo has never been checked and the next cycle performs an
	// initialization fetch.
	LastCheckedAt time.Time
	AddedAt       time.Time
}

// Key returns the identity string for this repo/branch pair, used in logs.
func (r TrackedRepo) Key() string {
	if r.Branch == "" {
		return r.FullName
	}
	return r.FullName + "@" + r.Branch
}

// Initialized reports whether this repo/branch has completed its
// initialization fetch.
func (r TrackedRepo) Initialized() bool {
	return !r.LastCheckedAt.IsZero()
}

// CommitRecord is one entry in the dedup log: a commit that has already been
// surfaced for a repo/branch. A given (RepoFullName, Branch, SHA) is recorded
// at most once.
type CommitRecord struct {
	RepoFullName string
	Branch       string
	SHA          string
	CommittedAt  time.Time
	NotifiedAt   time.Time
}

// RepoInfo carries repository-level metadata used for the notification
// author block. Fetched once per repository per cycle, not persisted.
type RepoInfo struct {
	Name           string
	OwnerAvatarURL string
	HTMLURL        string
}
