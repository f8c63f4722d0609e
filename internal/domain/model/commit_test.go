package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommitShortSHA(t *testing.T) {
	assert.Equal(t, "abc1234", Commit{SHA: "abc1234def5678"}.ShortSHA())
	assert.Equal(t, "abc", Commit{SHA: "abc"}.ShortSHA())
}

func TestCommitSubjectAndBody(t *testing.T) {
	tests := []struct {
		name    string
		message string
		subject string
		body    string
	}{
		{
			name:    "subject only",
			message: "Fix the flux capacitor",
			subject: "Fix the flux capacitor",
			body:    "",
		},
		{
			name:    "blank line separator",
			message: "Fix the flux capacitor\n\nIt was emitting tachyons.\nNow it doesn't.",
			subject: "Fix the flux capacitor",
			body:    "It was emitting tachyons.\nNow it doesn't.",
		},
		{
			name:    "single newline separator",
			message: "Fix the flux capacitor\nIt was emitting tachyons.",
			subject: "Fix the flux capacitor",
			body:    "It was emitting tachyons.",
		},
		{
			name:    "trailing newline is not a body",
			message: "Fix the flux capacitor\n",
			subject: "Fix the flux capacitor",
			body:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Commit{Message: tt.message}
			assert.Equal(t, tt.subject, c.Subject())
			assert.Equal(t, tt.body, c.Body())
		})
	}
}

func TestTrackedRepoKey(t *testing.T) {
	assert.Equal(t, "acme/widgets", TrackedRepo{FullName: "acme/widgets"}.Key())
	assert.Equal(t, "acme/widgets@main", TrackedRepo{FullName: "acme/widgets", Branch: "main"}.Key())
}
