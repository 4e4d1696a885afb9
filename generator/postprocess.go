package generator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Only real list prefixes are stripped: "1. ", "2) ", "Chapter 4: ",
// bullets and markdown headings. "3.5 Tonne" and "2025: ..." stay intact.
var listMarker = regexp.MustCompile(`(?i)^(?:#{1,6}\s+|[-*•]\s+|chapter\s+\d+\s*[.):]?(?:\s+|$)|\d+[.)]\s+)`)

// ParseOutline turns a planner response into chapter titles: one per
// non-empty line, list markers and surrounding emphasis stripped, at most
// hardMax kept in original order (hardMax <= 0 means unbounded).
func ParseOutline(raw string, hardMax int) []string {
	var titles []string
	for _, line := range strings.Split(raw, "\n") {
		title := strings.TrimSpace(line)
		title = listMarker.ReplaceAllString(title, "")
		title = strings.TrimSpace(strings.Trim(title, "*_"))
		if title == "" {
			continue
		}
		titles = append(titles, title)
	}
	if hardMax > 0 && len(titles) > hardMax {
		titles = titles[:hardMax]
	}
	return titles
}

// Truncate returns the first n characters (runes) of s.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}
