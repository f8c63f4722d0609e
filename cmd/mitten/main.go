package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	discordadapter "github.com/mittenbot/mitten/internal/adapter/driven/discord"
	githubadapter "github.com/mittenbot/mitten/internal/adapter/driven/github"
	sqliteadapter "github.com/mittenbot/mitten/internal/adapter/driven/sqlite"
	"github.com/mittenbot/mitten/internal/application"
	"github.com/mittenbot/mitten/internal/config"
	"github.com/mittenbot/mitten/internal/domain/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "mitten",
		Short:         "Watches GitHub repositories and announces new commits to a Discord webhook",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), false)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Run a single poll cycle and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), true)
		},
	})

	return root
}

// run is the composition root: it loads configuration, wires adapters to the
// watch service, and either runs one cycle (once) or blocks on the watch loop
// until SIGINT/SIGTERM.
func run(ctx context.Context, once bool) error {
	// 1. Load configuration (fail fast on missing or malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"repos", len(cfg.Repos),
		"db_path", cfg.DBPath,
		"check_interval", cfg.CheckInterval,
		"title_style", cfg.TitleStyle,
		"authenticated", cfg.GitHubToken != "",
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database and run migrations.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	// 4. Wire stores and sync the tracked set with configuration. Repos
	// dropped from MITTEN_REPOS are pruned together with their dedup log.
	repoStore := sqliteadapter.NewTrackedRepoRepo(db)
	commitLog := sqliteadapter.NewCommitLogRepo(db)

	tracked := make([]model.TrackedRepo, 0, len(cfg.Repos))
	for _, spec := range cfg.Repos {
		tracked = append(tracked, model.TrackedRepo{FullName: spec.FullName, Branch: spec.Branch})
	}
	added, removed, err := repoStore.Sync(ctx, tracked)
	if err != nil {
		return err
	}
	slog.Info("tracked repos synced", "tracked", len(tracked), "added", added, "removed", removed)

	// 5. Wire outbound adapters.
	ghClient := githubadapter.NewClient(cfg.GitHubToken)
	notifier := discordadapter.NewWebhook(cfg.WebhookURL, cfg.EmbedColor, cfg.MentionRoleIDs, cfg.TitleStyle)

	// 6. Optional startup connectivity test against the webhook.
	if cfg.StartupTest {
		if err := notifier.Probe(ctx); err != nil {
			return err
		}
		slog.Info("webhook connectivity test passed")
	}

	// 7. Run.
	svc := application.NewWatchService(ghClient, repoStore, commitLog, notifier, cfg.CheckInterval, cfg.NotifyOnInit)

	if once {
		return svc.RunCycle(ctx)
	}

	slog.Info("mitten started", "check_interval", cfg.CheckInterval)
	svc.Start(ctx)

	slog.Info("shutdown complete")
	return nil
}
