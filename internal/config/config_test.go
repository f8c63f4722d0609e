package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mittenbot/mitten/internal/domain/model"
)

// allConfigKeys lists every MITTEN_ env var that Load() reads.
var allConfigKeys = []string{
	"MITTEN_REPOS",
	"MITTEN_DISCORD_WEBHOOK_URL",
	"MITTEN_GITHUB_TOKEN",
	"MITTEN_CHECK_INTERVAL",
	"MITTEN_DB_PATH",
	"MITTEN_EMBED_COLOR",
	"MITTEN_MENTION_ROLE_IDS",
	"MITTEN_NOTIFY_ON_INIT",
	"MITTEN_TITLE_STYLE",
	"MITTEN_STARTUP_TEST",
}

// isolateConfigEnv saves and unsets all MITTEN_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_REPOS", "acme/widgets, acme/gadgets@develop")
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("MITTEN_GITHUB_TOKEN", "ghp_test123")
	t.Setenv("MITTEN_CHECK_INTERVAL", "5m")
	t.Setenv("MITTEN_DB_PATH", "/tmp/test.db")
	t.Setenv("MITTEN_EMBED_COLOR", "#ff8800")
	t.Setenv("MITTEN_MENTION_ROLE_IDS", "111, 222")
	t.Setenv("MITTEN_NOTIFY_ON_INIT", "true")
	t.Setenv("MITTEN_TITLE_STYLE", "author")
	t.Setenv("MITTEN_STARTUP_TEST", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []RepoSpec{
		{FullName: "acme/widgets"},
		{FullName: "acme/gadgets", Branch: "develop"},
	}, cfg.Repos)
	assert.Equal(t, "https://discord.com/api/webhooks/1/abc", cfg.WebhookURL)
	assert.Equal(t, "ghp_test123", cfg.GitHubToken)
	assert.Equal(t, 5*time.Minute, cfg.CheckInterval)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 0xff8800, cfg.EmbedColor)
	assert.Equal(t, []string{"111", "222"}, cfg.MentionRoleIDs)
	assert.True(t, cfg.NotifyOnInit)
	assert.Equal(t, model.TitleStyleAuthor, cfg.TitleStyle)
	assert.True(t, cfg.StartupTest)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_REPOS", "acme/widgets")
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.CheckInterval)
	assert.Equal(t, "mitten.db", cfg.DBPath)
	assert.Equal(t, 0x2ea043, cfg.EmbedColor)
	assert.Empty(t, cfg.MentionRoleIDs)
	assert.Empty(t, cfg.GitHubToken)
	assert.False(t, cfg.NotifyOnInit)
	assert.Equal(t, model.TitleStyleRepo, cfg.TitleStyle)
	assert.False(t, cfg.StartupTest)
}

func TestLoad_MissingRepos(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MITTEN_REPOS")
}

func TestLoad_MissingWebhook(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_REPOS", "acme/widgets")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MITTEN_DISCORD_WEBHOOK_URL")
}

func TestLoad_MalformedRepo(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")

	for _, bad := range []string{"widgets", "/widgets", "acme/", "acme/widgets,justaname"} {
		t.Setenv("MITTEN_REPOS", bad)
		_, err := Load()
		assert.Error(t, err, "repos value %q should be rejected", bad)
	}
}

func TestLoad_DuplicateRepo(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("MITTEN_REPOS", "acme/widgets,acme/widgets")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestLoad_SameRepoDifferentBranches(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("MITTEN_REPOS", "acme/widgets@main,acme/widgets@release")

	cfg, err := Load()

	require.NoError(t, err)
	require.Len(t, cfg.Repos, 2)
	assert.Equal(t, "main", cfg.Repos[0].Branch)
	assert.Equal(t, "release", cfg.Repos[1].Branch)
}

func TestLoad_InvalidInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_REPOS", "acme/widgets")
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")

	t.Setenv("MITTEN_CHECK_INTERVAL", "soon")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MITTEN_CHECK_INTERVAL", "-10s")
	_, err = Load()
	require.Error(t, err)
}

func TestLoad_InvalidColor(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_REPOS", "acme/widgets")
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("MITTEN_EMBED_COLOR", "bright-green")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MITTEN_EMBED_COLOR")
}

func TestLoad_InvalidTitleStyle(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("MITTEN_REPOS", "acme/widgets")
	t.Setenv("MITTEN_DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("MITTEN_TITLE_STYLE", "fancy")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MITTEN_TITLE_STYLE")
}
