package retriever

import (
	"strings"
	"unicode/utf8"

	"kbdraft/internal/adapter/analyzer"
)

// extractExcerpt picks the window of at most maxChars bytes of text that
// contains the most query-term occurrences, then pads it with surrounding
// context up to the budget. When no query term occurs in the document it
// falls back to the head of the text.
func extractExcerpt(text string, queryTerms map[string]struct{}, tok *analyzer.Tokenizer, maxChars int) string {
	if len(text) <= maxChars {
		return strings.TrimSpace(text)
	}

	var matches []analyzer.Span
	for _, span := range tok.Spans(text) {
		if _, ok := queryTerms[span.Term]; ok {
			matches = append(matches, span)
		}
	}

	if len(matches) == 0 {
		return truncate(text, maxChars)
	}

	// Two-pointer scan over match positions: for each starting match,
	// take the longest run of matches that still fits in maxChars.
	// Earliest window wins ties, keeping output deterministic.
	bestStart, bestEnd, bestCount := matches[0].Start, matches[0].End, 0
	j := 0
	for i := range matches {
		if j < i {
			j = i
		}
		for j+1 < len(matches) && matches[j+1].End-matches[i].Start <= maxChars {
			j++
		}
		if count := j - i + 1; count > bestCount {
			bestStart, bestEnd, bestCount = matches[i].Start, matches[j].End, count
		}
	}

	// Spend the remaining budget on context around the match window.
	budget := maxChars - (bestEnd - bestStart)
	start := bestStart - budget/2
	if start < 0 {
		start = 0
	}
	end := start + maxChars
	if end > len(text) {
		end = len(text)
		if start = end - maxChars; start < 0 {
			start = 0
		}
	}

	// Snap to rune boundaries.
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end++
	}

	// Trim cut-off words at the edges, never into the match window.
	if start > 0 {
		if idx := strings.IndexAny(text[start:end], " \t\n"); idx >= 0 && start+idx+1 <= bestStart {
			start += idx + 1
		}
	}
	if end < len(text) {
		if idx := strings.LastIndexAny(text[start:end], " \t\n"); idx >= 0 && start+idx >= bestEnd {
			end = start + idx
		}
	}

	return strings.TrimSpace(text[start:end])
}

// truncate returns the first maxChars bytes of text without splitting a
// rune or a word.
func truncate(text string, maxChars int) string {
	if len(text) <= maxChars {
		return strings.TrimSpace(text)
	}
	end := maxChars
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}
