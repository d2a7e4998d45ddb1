// Package extract recovers structured JSON from free-text model output.
// Models are instructed to emit pure JSON but cannot be trusted to comply:
// they wrap output in markdown fences, prepend reasoning, or emit strings
// with unescaped quotes. The strategies here are layered from strict to
// permissive so that well-formed output never touches the riskier repair
// path, and every failure keeps enough of the original text to debug prompt
// regressions without re-running the model.
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	// Some models leak their reasoning side channel into the response.
	thinkBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)

	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
)

// Extract recovers a well-formed JSON value from raw model output. It tries,
// in order: a strict parse of the cleaned text, the interior of a ```json
// fenced block, the outermost {...} span, and finally a lenient repair of
// that span. It fails with *Error only after every strategy is exhausted.
func Extract(raw string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSpace(thinkBlock.ReplaceAllString(cleaned, ""))
	cleaned = stripFences(cleaned)

	if v, ok := strictParse(cleaned); ok {
		return v, nil
	}

	if m := fencedJSON.FindStringSubmatch(cleaned); m != nil {
		if v, ok := strictParse(m[1]); ok {
			return v, nil
		}
	}

	// Greedy match of the outermost brace span: first '{' to last '}'.
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		span := cleaned[start : end+1]
		if v, ok := strictParse(span); ok {
			return v, nil
		}
		// Last resort for output with unescaped quotes or stray commas
		// inside string values. Repair only accepts a single object span.
		if repaired, ok := Repair(span); ok {
			if v, ok := strictParse(repaired); ok {
				return v, nil
			}
		}
	}

	return nil, &Error{Excerpt: excerpt(raw)}
}

// strictParse accepts only fully well-formed JSON.
func strictParse(text string) (json.RawMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	if !json.Valid([]byte(text)) {
		return nil, false
	}
	return json.RawMessage(text), true
}

// stripFences removes a leading and trailing markdown code fence wrapping
// the whole response, leaving interior fences for the fenced-block strategy.
func stripFences(text string) string {
	if strings.HasPrefix(text, "```") {
		rest := strings.TrimPrefix(text, "```")
		// Drop a language tag on the opening fence line.
		if idx := strings.Index(rest, "\n"); idx >= 0 {
			firstLine := strings.TrimSpace(rest[:idx])
			if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {") {
				rest = rest[idx+1:]
			}
		}
		if idx := strings.LastIndex(rest, "```"); idx >= 0 {
			rest = rest[:idx]
		}
		return strings.TrimSpace(rest)
	}
	return text
}
