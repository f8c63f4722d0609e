package model

import (
	"strings"
	"time"
)

// Commit represents a single commit fetched from GitHub for a tracked
// repository/branch.
type Commit struct {
	SHA             string
	RepoFullName    string
	Branch          string // Empty means the repository's default branch.
	AuthorName      string
	AuthorAvatarURL string
	Message         string // Full commit message, subject and body.
	URL             string
	CommittedAt     time.Time
}

// ShortSHA returns the abbreviated 7-character commit identifier used in
// notification text.
func (c Commit) ShortSHA() string {
	if len(c.SHA) < 7 {
		return c.SHA
	}
	return c.SHA[:7]
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _ := splitMessage(c.Message)
	return subject
}

// Body returns the commit message body, i.e. everything after the subject
// line. Returns an empty string when the message has no body.
func (c Commit) Body() string {
	_, body := splitMessage(c.Message)
	return body
}

// splitMessage splits a commit message into subject and body. A blank line
// separator takes precedence over a plain newline, matching how GitHub
// renders commit messages.
func splitMessage(message string) (string, string) {
	if subject, body, ok := strings.Cut(message, "\n\n"); ok {
		return subject, strings.TrimSpace(body)
	}
	if subject, body, ok := strings.Cut(message, "\n"); ok {
		return subject, strings.TrimSpace(body)
	}
	return message, ""
}
