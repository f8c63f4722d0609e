// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mittenbot/mitten/internal/domain/model"
)

// RepoSpec is one configured repository/branch pair. An empty Branch means
// the repository's default branch.
type RepoSpec struct {
	FullName string
	Branch   string
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Repos          []RepoSpec
	WebhookURL     string
	GitHubToken    string
	CheckInterval  time.Duration
	DBPath         string
	EmbedColor     int
	MentionRoleIDs []string
	NotifyOnInit   bool
	TitleStyle     model.TitleStyle
	StartupTest    bool
}

// Load reads configuration from environment variables and returns a validated
// Config. Required: MITTEN_REPOS (comma-separated "owner/repo" or
// "owner/repo@branch") and MITTEN_DISCORD_WEBHOOK_URL. Optional variables
// with defaults: MITTEN_CHECK_INTERVAL (60s), MITTEN_DB_PATH (mitten.db),
// MITTEN_EMBED_COLOR (2ea043), MITTEN_TITLE_STYLE (repo). MITTEN_GITHUB_TOKEN
// is optional; without it GitHub is queried anonymously at lower rate limits.
func Load() (*Config, error) {
	repos, err := parseRepos(os.Getenv("MITTEN_REPOS"))
	if err != nil {
		return nil, err
	}

	webhookURL := os.Getenv("MITTEN_DISCORD_WEBHOOK_URL")
	if webhookURL == "" {
		return nil, fmt.Errorf("MITTEN_DISCORD_WEBHOOK_URL is required")
	}

	checkInterval := 60 * time.Second
	if v, ok := os.LookupEnv("MITTEN_CHECK_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("MITTEN_CHECK_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("MITTEN_CHECK_INTERVAL must be positive, got %q", v)
		}
		checkInterval = parsed
	}

	dbPath := "mitten.db"
	if v, ok := os.LookupEnv("MITTEN_DB_PATH"); ok {
		dbPath = v
	}

	embedColor := 0x2ea043
	if v, ok := os.LookupEnv("MITTEN_EMBED_COLOR"); ok {
		parsed, err := strconv.ParseInt(strings.TrimPrefix(v, "#"), 16, 32)
		if err != nil {
			return nil, fmt.Errorf("MITTEN_EMBED_COLOR has invalid hex color %q: %w", v, err)
		}
		embedColor = int(parsed)
	}

	var roleIDs []string
	if v, ok := os.LookupEnv("MITTEN_MENTION_ROLE_IDS"); ok && v != "" {
		for _, id := range strings.Split(v, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				roleIDs = append(roleIDs, id)
			}
		}
	}

	titleStyle := model.TitleStyleRepo
	if v, ok := os.LookupEnv("MITTEN_TITLE_STYLE"); ok {
		titleStyle = model.TitleStyle(v)
		if !titleStyle.Valid() {
			return nil, fmt.Errorf("MITTEN_TITLE_STYLE must be %q or %q, got %q",
				model.TitleStyleRepo, model.TitleStyleAuthor, v)
		}
	}

	notifyOnInit, err := parseBool("MITTEN_NOTIFY_ON_INIT")
	if err != nil {
		return nil, err
	}

	startupTest, err := parseBool("MITTEN_STARTUP_TEST")
	if err != nil {
		return nil, err
	}

	return &Config{
		Repos:          repos,
		WebhookURL:     webhookURL,
		GitHubToken:    os.Getenv("MITTEN_GITHUB_TOKEN"),
		CheckInterval:  checkInterval,
		DBPath:         dbPath,
		EmbedColor:     embedColor,
		MentionRoleIDs: roleIDs,
		NotifyOnInit:   notifyOnInit,
		TitleStyle:     titleStyle,
		StartupTest:    startupTest,
	}, nil
}

// parseRepos parses the MITTEN_REPOS value. Each entry is "owner/repo" with
// an optional "@branch" suffix. Duplicate repo/branch pairs are rejected
// since they would double-notify.
func parseRepos(raw string) ([]RepoSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("MITTEN_REPOS is required")
	}

	var repos []RepoSpec
	seen := make(map[string]bool)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		fullName, branch, _ := strings.Cut(entry, "@")

		parts := strings.SplitN(fullName, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("MITTEN_REPOS entry %q is not owner/repo", entry)
		}

		key := fullName + "@" + branch
		if seen[key] {
			return nil, fmt.Errorf("MITTEN_REPOS lists %q more than once", entry)
		}
		seen[key] = true

		repos = append(repos, RepoSpec{FullName: fullName, Branch: branch})
	}

	if len(repos) == 0 {
		return nil, fmt.Errorf("MITTEN_REPOS is required")
	}

	return repos, nil
}

// parseBool reads an optional boolean env var, defaulting to false.
func parseBool(key string) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s has invalid boolean %q: %w", key, v, err)
	}
	return parsed, nil
}
