package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mittenbot/mitten/internal/domain/model"
	"github.com/mittenbot/mitten/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TrackedRepoStore = (*TrackedRepoRepo)(nil)

// TrackedRepoRepo is the SQLite implementation of the TrackedRepoStore port interface.
type TrackedRepoRepo struct {
	db *DB
}

// NewTrackedRepoRepo creates a new TrackedRepoRepo backed by the given DB.
func NewTrackedRepoRepo(db *DB) *TrackedRepoRepo {
	return &TrackedRepoRepo{db: db}
}

// Sync makes the stored tracked set exactly match the given repo/branch pairs.
// New pairs are inserted with a NULL last_checked_at so their first cycle runs
// an initialization fetch; pairs absent from the list are removed together
// with their dedup log rows. Runs in a single transaction.
func (r *TrackedRepoRepo) Sync(ctx context.Context, repos []model.TrackedRepo) (added, removed int, err error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin sync: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT full_name, branch FROM tracked_repos`)
	if err != nil {
		return 0, 0, fmt.Errorf("list existing tracked repos: %w", err)
	}

	existing := make(map[string]bool)
	for rows.Next() {
		var fullName, branch string
		if err := rows.Scan(&fullName, &branch); err != nil {
			rows.Close()
			return 0, 0, fmt.Errorf("scan tracked repo: %w", err)
		}
		existing[fullName+"\x00"+branch] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, 0, fmt.Errorf("iterate tracked repos: %w", err)
	}
	rows.Close()

	configured := make(map[string]bool, len(repos))
	now := time.Now().UTC().Format(time.RFC3339)

	for _, repo := range repos {
		key := repo.FullName + "\x00" + repo.Branch
		configured[key] = true
		if existing[key] {
			continue
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO tracked_repos (full_name, branch, last_checked_at, added_at) VALUES (?, ?, NULL, ?)`,
			repo.FullName, repo.Branch, now,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("add tracked repo %s: %w", repo.Key(), err)
		}
		added++
	}

	for key := range existing {
		if configured[key] {
			continue
		}
		fullName, branch := splitKey(key)

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM notified_commits WHERE repo_full_name = ? AND branch = ?`,
			fullName, branch,
		); err != nil {
			return 0, 0, fmt.Errorf("prune dedup log for %s: %w", fullName, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tracked_repos WHERE full_name = ? AND branch = ?`,
			fullName, branch,
		); err != nil {
			return 0, 0, fmt.Errorf("prune tracked repo %s: %w", fullName, err)
		}
		removed++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit sync: %w", err)
	}

	return added, removed, nil
}

// ListAll returns all tracked repo/branch pairs ordered by full name then branch.
func (r *TrackedRepoRepo) ListAll(ctx context.Context) ([]model.TrackedRepo, error) {
	const query = `SELECT id, full_name, branch, last_checked_at, added_at FROM tracked_repos ORDER BY full_name, branch`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tracked repos: %w", err)
	}
	defer rows.Close()

	var repos []model.TrackedRepo
	for rows.Next() {
		repo, err := scanTrackedRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked repo: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked repos: %w", err)
	}

	return repos, nil
}

// SetLastChecked advances the last-checked timestamp for a repo/branch.
func (r *TrackedRepoRepo) SetLastChecked(ctx context.Context, fullName, branch string, t time.Time) error {
	const query = `UPDATE tracked_repos SET last_checked_at = ? WHERE full_name = ? AND branch = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, t.UTC().Format(time.RFC3339), fullName, branch)
	if err != nil {
		return fmt.Errorf("set last checked for %s: %w", fullName, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("set last checked for %s: %w", fullName, driven.ErrRepoNotFound)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTrackedRepo(s scanner) (*model.TrackedRepo, error) {
	var repo model.TrackedRepo
	var lastChecked sql.NullString
	var addedAt string

	err := s.Scan(&repo.ID, &repo.FullName, &repo.Branch, &lastChecked, &addedAt)
	if err != nil {
		return nil, err
	}

	if lastChecked.Valid {
		repo.LastCheckedAt, err = parseTime(lastChecked.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_checked_at: %w", err)
		}
	}

	repo.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, fmt.Errorf("parse added_at: %w", err)
	}

	return &repo, nil
}

// splitKey splits a full_name\x00branch map key back into its components.
func splitKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
