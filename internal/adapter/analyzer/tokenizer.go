package analyzer

import (
	"strings"
	"unicode"

	"kbdraft/internal/port"
)

var _ port.Tokenizer = (*Tokenizer)(nil)

// Tokenizer splits text into lower-cased terms on non-alphanumeric
// boundaries. The same instance must be used for indexing and querying;
// a diverging query tokenizer silently degrades recall.
type Tokenizer struct {
	minTokenLength int
}

// NewTokenizer creates a Tokenizer. Tokens shorter than minTokenLength
// runes are dropped; values below 1 are treated as 1.
func NewTokenizer(minTokenLength int) *Tokenizer {
	if minTokenLength < 1 {
		minTokenLength = 1
	}
	return &Tokenizer{minTokenLength: minTokenLength}
}

// Span is a normalized term with its byte offsets in the original text.
type Span struct {
	Term  string
	Start int
	End   int
}

// Tokenize returns the normalized terms of text, duplicates retained,
// in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	spans := t.Spans(text)
	if len(spans) == 0 {
		return nil
	}
	tokens := make([]string, len(spans))
	for i, s := range spans {
		tokens[i] = s.Term
	}
	return tokens
}

// Spans tokenizes text and keeps byte offsets, used by excerpt
// extraction to map terms back into the raw document.
func (t *Tokenizer) Spans(text string) []Span {
	var spans []Span
	var current strings.Builder
	start := -1

	flush := func(end int) {
		if current.Len() > 0 {
			term := strings.ToLower(current.String())
			if len([]rune(term)) >= t.minTokenLength {
				spans = append(spans, Span{Term: term, Start: start, End: end})
			}
			current.Reset()
		}
		start = -1
	}

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			current.WriteRune(r)
		} else {
			flush(i)
		}
	}
	flush(len(text))

	return spans
}
