package generator

import (
	"regexp"
	"strings"
)

type substitution struct {
	pattern     *regexp.Regexp
	replacement string
}

// Words that trip provider content filters in ordinary technical and
// business prose. No replacement may itself match a pattern, which keeps
// Sanitize idempotent.
var substitutions = []substitution{
	{regexp.MustCompile(`(?i)\bsex\b`), "six"},
	{regexp.MustCompile(`(?i)\bsexy\b`), "attractive"},
	{regexp.MustCompile(`(?i)\bpenetration\b`), "market entry"},
	{regexp.MustCompile(`(?i)\bpenetrate\b`), "enter"},
	{regexp.MustCompile(`(?i)\bpenetrating\b`), "entering"},
	{regexp.MustCompile(`(?i)\bmating\b`), "connecting"},
	{regexp.MustCompile(`(?i)\bmate\b`), "connect"},
	{regexp.MustCompile(`(?i)\bintercourse\b`), "interaction"},
	{regexp.MustCompile(`(?i)\berotic\b`), "appealing"},
	{regexp.MustCompile(`(?i)\bseduction\b`), "attraction"},
	{regexp.MustCompile(`(?i)\bseduce\b`), "attract"},
	{regexp.MustCompile(`(?i)\bintimate\b`), "close"},
	{regexp.MustCompile(`(?i)\bintimacy\b`), "closeness"},
	{regexp.MustCompile(`(?i)\bxxx\b`), "multiple"},
	{regexp.MustCompile(`(?i)\badult\b`), "mature"},
}

// Sanitize replaces known trigger words with benign synonyms.
func Sanitize(text string) string {
	out, _ := SanitizeReport(text)
	return out
}

// SanitizeReport is Sanitize that also returns the distinct words it
// replaced, lower-cased, in table order.
func SanitizeReport(text string) (string, []string) {
	if text == "" {
		return text, nil
	}
	var replaced []string
	seen := make(map[string]bool)
	for _, s := range substitutions {
		matches := s.pattern.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		for _, m := range matches {
			w := strings.ToLower(m)
			if !seen[w] {
				seen[w] = true
				replaced = append(replaced, w)
			}
		}
		text = s.pattern.ReplaceAllLiteralString(text, s.replacement)
	}
	return text, replaced
}
