package rank

import (
	"strings"
	"unicode"
)

const (
	snippetWindow   = 400
	snippetStride   = 50
	snippetContext  = 100
	snippetFallback = 300
	ellipsis        = "..."
)

// Snippet picks the 400 character window containing the most distinct query
// terms, widens it by 100 characters each side and marks cut edges.
func Snippet(content string, queryTokens []string) string {
	runes := []rune(content)
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	terms := distinctTerms(queryTokens)
	best, bestScore := -1, 0
	for pos := 0; pos < len(runes); pos += snippetStride {
		window := string(lower[pos:min(pos+snippetWindow, len(lower))])
		score := 0
		for _, t := range terms {
			if strings.Contains(window, t) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = pos, score
		}
	}
	if best < 0 {
		if len(runes) > snippetFallback {
			return string(runes[:snippetFallback]) + ellipsis
		}
		return content
	}
	start := max(0, best-snippetContext)
	end := min(len(runes), best+snippetWindow+snippetContext)
	out := string(runes[start:end])
	if start > 0 {
		out = ellipsis + out
	}
	if end < len(runes) {
		out += ellipsis
	}
	return out
}
