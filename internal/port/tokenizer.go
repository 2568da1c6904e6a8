package port

// Tokenizer normalizes text into terms. The index builder and the
// retriever must share one implementation.
type Tokenizer interface {
	Tokenize(text string) []string
}
