package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mittenbot/mitten/internal/domain/model"
	"github.com/mittenbot/mitten/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommitLog = (*CommitLogRepo)(nil)

// CommitLogRepo is the SQLite implementation of the CommitLog port interface.
// The UNIQUE (repo_full_name, branch, sha) index enforces the at-most-once
// invariant; inserts use INSERT OR IGNORE so re-recording is a no-op.
type CommitLogRepo struct {
	db *DB
}

// NewCommitLogRepo creates a new CommitLogRepo backed by the given DB.
func NewCommitLogRepo(db *DB) *CommitLogRepo {
	return &CommitLogRepo{db: db}
}

// Seen reports whether the SHA is already recorded for the repo/branch.
func (r *CommitLogRepo) Seen(ctx context.Context, fullName, branch, sha string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM notified_commits WHERE repo_full_name = ? AND branch = ? AND sha = ?)`

	var exists bool
	if err := r.db.Reader.QueryRowContext(ctx, query, fullName, branch, sha).Scan(&exists); err != nil {
		return false, fmt.Errorf("check commit %s in %s: %w", sha, fullName, err)
	}

	return exists, nil
}

// Record adds one entry to the dedup log.
func (r *CommitLogRepo) Record(ctx context.Context, rec model.CommitRecord) error {
	const query = `INSERT OR IGNORE INTO notified_commits (repo_full_name, branch, sha, committed_at, notified_at)
		VALUES (?, ?, ?, ?, ?)`

	notifiedAt := rec.NotifiedAt
	if notifiedAt.IsZero() {
		notifiedAt = time.Now().UTC()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		rec.RepoFullName, rec.Branch, rec.SHA,
		rec.CommittedAt.UTC().Format(time.RFC3339),
		notifiedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record commit %s in %s: %w", rec.SHA, rec.RepoFullName, err)
	}

	return nil
}

// RecordAll adds a batch of entries in a single transaction. Used by the
// initialization fetch, where full history can be thousands of rows.
func (r *CommitLogRepo) RecordAll(ctx context.Context, recs []model.CommitRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO notified_commits (repo_full_name, branch, sha, committed_at, notified_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record batch: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range recs {
		notifiedAt := rec.NotifiedAt
		if notifiedAt.IsZero() {
			notifiedAt = now
		}

		if _, err := stmt.ExecContext(ctx,
			rec.RepoFullName, rec.Branch, rec.SHA,
			rec.CommittedAt.UTC().Format(time.RFC3339),
			notifiedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("record commit %s in %s: %w", rec.SHA, rec.RepoFullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record batch: %w", err)
	}

	return nil
}

// Count returns the number of recorded entries for a repo/branch.
func (r *CommitLogRepo) Count(ctx context.Context, fullName, branch string) (int, error) {
	const query = `SELECT COUNT(*) FROM notified_commits WHERE repo_full_name = ? AND branch = ?`

	var count int
	if err := r.db.Reader.QueryRowContext(ctx, query, fullName, branch).Scan(&count); err != nil {
		return 0, fmt.Errorf("count commits for %s: %w", fullName, err)
	}

	return count, nil
}
