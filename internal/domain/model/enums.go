package model

// TitleStyle selects how notification titles are phrased.
type TitleStyle string

const (
	// TitleStyleRepo leads with the repository: "New commit in owner/repo".
	TitleStyleRepo TitleStyle = "repo"
	// TitleStyleAuthor leads with the author: "alice pushed to owner/repo".
	TitleStyleAuthor TitleStyle = "author"
)

// Valid reports whether s is a recognized title style.
func (s TitleStyle) Valid() bool {
	return s == TitleStyleRepo || s == TitleStyleAuthor
}
