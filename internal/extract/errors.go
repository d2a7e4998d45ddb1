package extract

import "fmt"

// maxExcerpt bounds how much of the offending text the error keeps.
const maxExcerpt = 500

// Error indicates that no strategy could recover structured JSON from the
// model output. Excerpt holds the start of the offending text for
// diagnostics.
type Error struct {
	Excerpt string
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to extract JSON from model output: %q", e.Excerpt)
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) > maxExcerpt {
		return string(runes[:maxExcerpt])
	}
	return text
}
