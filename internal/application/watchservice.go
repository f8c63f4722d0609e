// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mittenbot/mitten/internal/domain/model"
	"github.com/mittenbot/mitten/internal/domain/port/driven"
)

// WatchService orchestrates periodic commit polling, deduplication, and
// notification delivery.
type WatchService struct {
	ghClient     driven.GitHubClient
	repoStore    driven.TrackedRepoStore
	commitLog    driven.CommitLog
	notifier     driven.Notifier
	interval     time.Duration
	notifyOnInit bool
}

// NewWatchService creates a new WatchService with all required dependencies.
func NewWatchService(
	ghClient driven.GitHubClient,
	repoStore driven.TrackedRepoStore,
	commitLog driven.CommitLog,
	notifier driven.Notifier,
	interval time.Duration,
	notifyOnInit bool,
) *WatchService {
	return &WatchService{
		ghClient:     ghClient,
		repoStore:    repoStore,
		commitLog:    commitLog,
		notifier:     notifier,
		interval:     interval,
		notifyOnInit: notifyOnInit,
	}
}

// Start begins the watch loop. It runs an immediate cycle, then polls on the
// configured interval. Start blocks until the context is canceled.
func (s *WatchService) Start(ctx context.Context) {
	if err := s.RunCycle(ctx); err != nil {
		slog.Error("initial cycle failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("watch service stopped")
			return
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				slog.Error("cycle failed", "error", err)
			}
		}
	}
}

// RunCycle runs one full pass over all tracked repos: each repo is checked on
// its own goroutine, failures are isolated per repo and never cancel
// siblings. Returns an error only when the tracked set itself cannot be read.
func (s *WatchService) RunCycle(ctx context.Context) error {
	start := time.Now()

	repos, err := s.repoStore.ListAll(ctx)
	if err != nil {
		return err
	}

	newCommits := make([]int, len(repos))
	failures := make([]error, len(repos))

	var g errgroup.Group
	for i, repo := range repos {
		g.Go(func() error {
			n, err := s.checkRepo(ctx, repo)
			newCommits[i] = n
			failures[i] = err
			// Errors are collected, not returned: a failing repo must not
			// cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	var total, errCount int
	for i, repo := range repos {
		total += newCommits[i]
		if failures[i] != nil {
			errCount++
			slog.Error("repo check failed", "repo", repo.Key(), "error", failures[i])
		}
	}

	slog.Info("cycle complete",
		"repos", len(repos),
		"new_commits", total,
		"errors", errCount,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

// checkRepo dispatches a single tracked repo to either the initialization
// fetch or a normal incremental poll. Returns the number of commits notified.
func (s *WatchService) checkRepo(ctx context.Context, repo model.TrackedRepo) (int, error) {
	if !repo.Initialized() {
		return 0, s.initializeRepo(ctx, repo)
	}
	return s.pollRepo(ctx, repo)
}

// initializeRepo handles the first encounter of a repo/branch: the full
// history is fetched and recorded as already seen without notifying, so a
// newly tracked repo does not flood the channel. The last-checked timestamp
// is set to now only after the log write succeeds, keeping the dedup log
// authoritative across crashes.
func (s *WatchService) initializeRepo(ctx context.Context, repo model.TrackedRepo) error {
	commits, err := s.ghClient.ListCommits(ctx, repo.FullName, repo.Branch, time.Time{})
	if err != nil {
		return err
	}

	recs := make([]model.CommitRecord, 0, len(commits))
	for _, c := range commits {
		recs = append(recs, model.CommitRecord{
			RepoFullName: repo.FullName,
			Branch:       repo.Branch,
			SHA:          c.SHA,
			CommittedAt:  c.CommittedAt,
		})
	}

	if err := s.commitLog.RecordAll(ctx, recs); err != nil {
		return err
	}

	if err := s.repoStore.SetLastChecked(ctx, repo.FullName, repo.Branch, time.Now().UTC()); err != nil {
		return err
	}

	slog.Info("initialized tracked repo", "repo", repo.Key(), "commits", len(commits))

	if s.notifyOnInit {
		if err := s.notifier.NotifyWatching(ctx, repo, len(commits)); err != nil {
			slog.Error("init notification failed", "repo", repo.Key(), "error", err)
		}
	}

	return nil
}

// pollRepo is the incremental check for an initialized repo/branch: fetch
// commits newer than the last-checked timestamp, drop any SHA already in the
// dedup log, then notify the remainder in chronological order. Each commit is
// recorded as seen once its notification is formatted, before delivery is
// attempted; a failed delivery is logged and never retried.
func (s *WatchService) pollRepo(ctx context.Context, repo model.TrackedRepo) (int, error) {
	commits, err := s.ghClient.ListCommits(ctx, repo.FullName, repo.Branch, repo.LastCheckedAt)
	if err != nil {
		// Last-checked stays put so the next cycle retries the same window.
		return 0, err
	}

	sort.SliceStable(commits, func(i, j int) bool {
		return commits[i].CommittedAt.Before(commits[j].CommittedAt)
	})

	var info *model.RepoInfo
	if len(commits) > 0 {
		info, err = s.ghClient.FetchRepository(ctx, repo.FullName)
		if err != nil {
			// The embed degrades gracefully without repo metadata.
			slog.Warn("repo metadata fetch failed", "repo", repo.Key(), "error", err)
			info = nil
		}
	}

	var notified int
	for _, commit := range commits {
		seen, err := s.commitLog.Seen(ctx, repo.FullName, repo.Branch, commit.SHA)
		if err != nil {
			return notified, err
		}
		if seen {
			// A previous cycle crashed between logging and advancing the
			// timestamp; the log wins.
			slog.Debug("skipping already-notified commit", "repo", repo.Key(), "sha", commit.ShortSHA())
			continue
		}

		// Mark seen before delivery: a transient webhook failure must not
		// turn into a re-notification storm on the next cycle.
		if err := s.commitLog.Record(ctx, model.CommitRecord{
			RepoFullName: repo.FullName,
			Branch:       repo.Branch,
			SHA:          commit.SHA,
			CommittedAt:  commit.CommittedAt,
		}); err != nil {
			return notified, err
		}

		if err := s.notifier.Notify(ctx, commit, info); err != nil {
			slog.Error("notification delivery failed",
				"repo", repo.Key(), "sha", commit.ShortSHA(), "error", err)
			continue
		}

		notified++
		slog.Info("notified new commit",
			"repo", repo.Key(),
			"sha", commit.ShortSHA(),
			"author", commit.AuthorName,
		)
	}

	lastChecked := time.Now().UTC()
	if len(commits) > 0 {
		lastChecked = commits[len(commits)-1].CommittedAt
	}
	if err := s.repoStore.SetLastChecked(ctx, repo.FullName, repo.Branch, lastChecked); err != nil {
		return notified, err
	}

	return notified, nil
}
