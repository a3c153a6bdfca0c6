package jobpost

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	htmlTagRegex   = regexp.MustCompile(`<[^>]*>`)
	htmlBlockRegex = regexp.MustCompile(`(?i)<\s*(/p|br\s*/?|/li|/h[1-6]|/div)\s*>`)
)

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first (Greenhouse double-encodes its content),
// block ends become line breaks, tags are dropped, and runs of spaces
// collapse.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	broken := htmlBlockRegex.ReplaceAllString(unescaped, "\n")
	plain := html.UnescapeString(htmlTagRegex.ReplaceAllString(broken, ""))

	var lines []string
	for _, line := range strings.Split(plain, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// joinSections joins non-blank sections with a blank line.
func joinSections(sections ...string) string {
	kept := sections[:0:0]
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n\n")
}

// parseRetryAfter parses the Retry-After header value into a duration.
// Supports seconds format (e.g. "120"). Returns zero if absent or unparseable.
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
