package llm

import "fmt"

// maxBodyExcerpt bounds how much of an upstream error body is kept for
// diagnostics.
const maxBodyExcerpt = 500

// UpstreamError indicates a non-success response from a completion
// endpoint. It carries the status and a body excerpt so that prompt and
// model misconfiguration can be debugged without re-running the stage.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion API returned status %d: %s", e.Status, e.Body)
}

func excerpt(body string) string {
	if len(body) > maxBodyExcerpt {
		return body[:maxBodyExcerpt]
	}
	return body
}
