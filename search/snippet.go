package search

import (
	"strings"

	"crosswalk/core"
)

// Snippet window, in characters
const (
	SnippetMax   = 150
	SnippetLead  = 50
	SnippetTrail = 100
)

const ellipsis = "..."

// IndexFold returns the character (rune) index of the first case-insensitive
// occurrence of substr in s, or -1
func IndexFold(s, substr string) int {
	if substr == "" {
		return 0
	}
	hay := foldRunes(s)
	needle := foldRunes(substr)
	if len(needle) > len(hay) {
		return -1
	}
outer:
	for i := 0; i <= len(hay)-len(needle); i++ {
		for j := range needle {
			if hay[i+j] != needle[j] {
				continue outer
			}
		}
		return i
	}
	return -1
}

// foldRunes folds s as Fold does; rune indexes line up with the input
func foldRunes(s string) []rune {
	return []rune(Fold(s))
}

// Truncate cuts s to max characters, appending an ellipsis when it cut anything
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + ellipsis
}

// Window extracts the context around the match at rune index idx:
// SnippetLead characters before it and SnippetTrail from it onward
func Window(s string, idx int) string {
	runes := []rune(s)
	start := idx - SnippetLead
	if start < 0 {
		start = 0
	}
	end := idx + SnippetTrail
	if end > len(runes) {
		end = len(runes)
	}
	if start > end {
		start = end
	}

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(string(runes[start:end]))
	if end < len(runes) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

// Snippet shows where query matched in req. A title match yields the title;
// otherwise the description or rationale is windowed around the first match.
// Without any match the description (or title) is truncated.
func Snippet(req *core.Requirement, query string) string {
	q := strings.TrimSpace(query)
	if q != "" {
		if IndexFold(req.Title, q) >= 0 {
			return Truncate(req.Title, SnippetMax)
		}
		for _, field := range []*string{req.Description, req.Rationale} {
			if field == nil {
				continue
			}
			if idx := IndexFold(*field, q); idx >= 0 {
				return Window(*field, idx)
			}
		}
	}

	if req.Description != nil && *req.Description != "" {
		return Truncate(*req.Description, SnippetMax)
	}
	return Truncate(req.Title, SnippetMax)
}
