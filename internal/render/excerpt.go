package render

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Excerpt extracts readable text from generated markup for app listings:
// tags are dropped, whitespace collapsed, and the result truncated to
// maxRunes. Unparseable markup yields an empty excerpt.
func Excerpt(markup string, maxRunes int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	doc.Find("script, style").Remove()

	// Collect text nodes individually so adjacent elements do not run
	// together ("<h1>Clock</h1><p>The time</p>" reads "Clock The time").
	var parts []string
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		s.Contents().Each(func(_ int, c *goquery.Selection) {
			if goquery.NodeName(c) == "#text" {
				if t := strings.TrimSpace(c.Text()); t != "" {
					parts = append(parts, t)
				}
			}
		})
	})

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxRunes])) + "…"
}
