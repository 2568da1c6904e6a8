package usecase

import (
	"fmt"
	"sync/atomic"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/adapter/index"
	"kbdraft/internal/adapter/retriever"
	"kbdraft/internal/domain"
)

// RetrieveUseCase owns the index lifecycle: build once at startup, serve
// read-only, optionally rebuild and swap atomically. In-flight queries
// always observe a fully built index.
type RetrieveUseCase struct {
	current         atomic.Pointer[retriever.TFIDFRetriever]
	tokenizer       *analyzer.Tokenizer
	defaultTopK     int
	maxExcerptChars int
}

// NewRetrieveUseCase creates the use case. Rebuild must be called with
// the initial corpus before the first Retrieve.
func NewRetrieveUseCase(tokenizer *analyzer.Tokenizer, defaultTopK, maxExcerptChars int) *RetrieveUseCase {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &RetrieveUseCase{
		tokenizer:       tokenizer,
		defaultTopK:     defaultTopK,
		maxExcerptChars: maxExcerptChars,
	}
}

// Rebuild constructs a fresh index from docs and swaps it in. The old
// index keeps serving until the swap; a failed build leaves it in place.
func (u *RetrieveUseCase) Rebuild(docs []domain.Document) error {
	idx, err := index.Build(docs, u.tokenizer)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	u.current.Store(retriever.NewTFIDFRetriever(idx, u.tokenizer, u.maxExcerptChars))
	return nil
}

// Retrieve searches the current index. A topK of 0 uses the configured
// default.
func (u *RetrieveUseCase) Retrieve(query string, topK int) ([]domain.ScoredResult, error) {
	r := u.current.Load()
	if r == nil {
		return nil, fmt.Errorf("index not built")
	}
	if topK <= 0 {
		topK = u.defaultTopK
	}
	return r.Search(query, topK)
}

// Stats reports the current index dimensions.
func (u *RetrieveUseCase) Stats() domain.IndexStats {
	r := u.current.Load()
	if r == nil {
		return domain.IndexStats{}
	}
	return r.Index().Stats()
}
