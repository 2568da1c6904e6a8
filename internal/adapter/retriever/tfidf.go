package retriever

import (
	"sort"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/adapter/index"
	"kbdraft/internal/domain"
	"kbdraft/internal/port"
)

var _ port.Retriever = (*TFIDFRetriever)(nil)

// TFIDFRetriever scores documents against a query by cosine similarity
// over a built tf-idf index. It holds only read-only state and is safe
// for concurrent use.
type TFIDFRetriever struct {
	idx             *index.Index
	tokenizer       *analyzer.Tokenizer
	maxExcerptChars int
}

// NewTFIDFRetriever creates a retriever over idx. The tokenizer must be
// the one the index was built with.
func NewTFIDFRetriever(idx *index.Index, tokenizer *analyzer.Tokenizer, maxExcerptChars int) *TFIDFRetriever {
	if maxExcerptChars <= 0 {
		maxExcerptChars = 300
	}
	return &TFIDFRetriever{
		idx:             idx,
		tokenizer:       tokenizer,
		maxExcerptChars: maxExcerptChars,
	}
}

// Index exposes the underlying index, mainly for stats reporting.
func (r *TFIDFRetriever) Index() *index.Index { return r.idx }

// Search returns up to k documents with positive similarity, sorted by
// score descending with ties broken by document input order. An empty
// or fully out-of-vocabulary query yields an empty result list.
func (r *TFIDFRetriever) Search(query string, k int) ([]domain.ScoredResult, error) {
	if k <= 0 {
		return nil, nil
	}

	queryTokens := r.tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	qvec := r.idx.QueryVector(queryTokens)

	type candidate struct {
		docIdx int
		score  float64
	}

	candidates := make([]candidate, 0, r.idx.DocCount())
	for i := 0; i < r.idx.DocCount(); i++ {
		score := dot(qvec, r.idx.Vector(i))
		if score > 0 {
			candidates = append(candidates, candidate{docIdx: i, score: score})
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// Candidates were appended in input order, so a stable sort keeps
	// the tie-break deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	queryTerms := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		queryTerms[t] = struct{}{}
	}

	results := make([]domain.ScoredResult, len(candidates))
	for i, c := range candidates {
		doc := r.idx.Doc(c.docIdx)
		results[i] = domain.ScoredResult{
			SourceID: doc.SourceID,
			Score:    c.score,
			Excerpt:  extractExcerpt(doc.Text, queryTerms, r.tokenizer, r.maxExcerptChars),
		}
	}

	return results, nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
