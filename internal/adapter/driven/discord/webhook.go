// Package discord implements the Notifier port against a Discord webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mittenbot/mitten/internal/domain/model"
	"github.com/mittenbot/mitten/internal/domain/port/driven"
)

// maxFieldLength is Discord's limit for an embed field value.
const maxFieldLength = 1024

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Webhook)(nil)

// Webhook delivers commit notifications as Discord embeds via a webhook URL.
type Webhook struct {
	url        string
	color      int
	roleIDs    []string
	titleStyle model.TitleStyle
	httpClient *http.Client
}

// NewWebhook creates a Webhook notifier. color is the embed accent color,
// roleIDs are Discord role snowflakes to mention in the message content, and
// titleStyle selects repo-led or author-led titles.
func NewWebhook(url string, color int, roleIDs []string, titleStyle model.TitleStyle) *Webhook {
	return &Webhook{
		url:        url,
		color:      color,
		roleIDs:    roleIDs,
		titleStyle: titleStyle,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWebhookWithHTTPClient creates a Webhook with a custom http.Client.
// Intended for testing against an httptest server.
func NewWebhookWithHTTPClient(url string, color int, roleIDs []string, titleStyle model.TitleStyle, httpClient *http.Client) *Webhook {
	w := NewWebhook(url, color, roleIDs, titleStyle)
	w.httpClient = httpClient
	return w
}

// Discord webhook payload types. Only the fields this notifier sets are modeled.

type payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Author      *embedAuthor `json:"author,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
}

type embedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type embedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Notify delivers a single new-commit embed. info may be nil when the
// repository metadata fetch failed; the embed then falls back to the commit
// author's avatar and the commit URL.
func (w *Webhook) Notify(ctx context.Context, commit model.Commit, info *model.RepoInfo) error {
	e := embed{
		Title:     w.title(commit),
		Color:     w.color,
		Timestamp: commit.CommittedAt.UTC().Format(time.RFC3339),
		Fields: []embedField{
			{
				Name:  "Commit",
				Value: truncate(fmt.Sprintf("[`%s`](%s) %s", commit.ShortSHA(), commit.URL, commit.Subject()), maxFieldLength),
			},
		},
	}

	if body := commit.Body(); body != "" {
		e.Fields = append(e.Fields, embedField{
			Name:  "Description",
			Value: truncate(body, maxFieldLength),
		})
	}

	if info != nil {
		e.URL = info.HTMLURL
		e.Author = &embedAuthor{Name: info.Name, IconURL: info.OwnerAvatarURL}
	} else {
		e.URL = commit.URL
		e.Author = &embedAuthor{Name: commit.RepoFullName, IconURL: commit.AuthorAvatarURL}
	}

	return w.post(ctx, payload{
		Content: w.mentions(),
		Embeds:  []embed{e},
	})
}

// NotifyWatching announces a completed initialization fetch with a single
// summary embed instead of one message per historical commit.
func (w *Webhook) NotifyWatching(ctx context.Context, repo model.TrackedRepo, commitCount int) error {
	return w.post(ctx, payload{
		Embeds: []embed{{
			Title:       fmt.Sprintf("Now watching %s", repo.Key()),
			Description: fmt.Sprintf("Recorded %d existing commits. New commits will be announced here.", commitCount),
			URL:         "https://github.com/" + repo.FullName,
			Color:       w.color,
			Timestamp:   time.Now().UTC().Format(time.RFC3339),
		}},
	})
}

// Probe verifies the webhook exists without posting a message. Discord
// answers GET on a webhook URL with the webhook's metadata.
func (w *Webhook) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.url, nil)
	if err != nil {
		return fmt.Errorf("build webhook probe: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe webhook: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe webhook: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// title renders the embed title per the configured style.
func (w *Webhook) title(commit model.Commit) string {
	if w.titleStyle == model.TitleStyleAuthor && commit.AuthorName != "" {
		return fmt.Sprintf("%s pushed to %s", commit.AuthorName, commit.RepoFullName)
	}
	return fmt.Sprintf("New commit in %s", commit.RepoFullName)
}

// mentions renders the role-mention prefix, e.g. "<@&111> <@&222>".
func (w *Webhook) mentions() string {
	if len(w.roleIDs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(w.roleIDs))
	for _, id := range w.roleIDs {
		parts = append(parts, "<@&"+id+">")
	}
	return strings.Join(parts, " ")
}

// post sends one webhook request and maps non-2xx responses to errors.
func (w *Webhook) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post webhook: unexpected status %d", resp.StatusCode)
	}

	return nil
}

// truncate cuts s to at most max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// drainAndClose discards the rest of a response body so the connection can be
// reused, then closes it.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
