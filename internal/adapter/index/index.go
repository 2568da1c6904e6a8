package index

import (
	"errors"
	"math"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/domain"
)

// ErrEmptyCorpus is returned by Build when no documents are supplied.
// It is the only build-time failure; malformed or empty documents
// degrade to zero vectors instead of failing the build.
var ErrEmptyCorpus = errors.New("empty corpus: no documents to index")

// Index is an immutable tf-idf vector index over a document corpus.
// It is safe for unlimited concurrent readers; rebuilding means
// constructing a new Index and swapping the reference.
type Index struct {
	docs    []domain.Document
	vocab   map[string]int
	terms   []string
	idf     []float64
	vectors [][]float64
}

// Build tokenizes the corpus, assigns vocabulary positions in first-seen
// order across documents in input order, and computes L2-normalized
// tf-idf vectors. Documents arriving with Tokens already set keep them;
// otherwise they are tokenized here.
func Build(docs []domain.Document, tok *analyzer.Tokenizer) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	idx := &Index{
		docs:  make([]domain.Document, len(docs)),
		vocab: make(map[string]int),
	}

	// Vocabulary and document frequencies, first-seen order.
	df := make(map[string]int)
	for i, doc := range docs {
		if doc.Tokens == nil {
			doc.Tokens = tok.Tokenize(doc.Text)
		}
		idx.docs[i] = doc

		seen := make(map[string]struct{}, len(doc.Tokens))
		for _, term := range doc.Tokens {
			if _, ok := idx.vocab[term]; !ok {
				idx.vocab[term] = len(idx.terms)
				idx.terms = append(idx.terms, term)
			}
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				df[term]++
			}
		}
	}

	// Smoothed idf: strictly positive, non-increasing in df.
	n := float64(len(docs))
	idx.idf = make([]float64, len(idx.terms))
	for pos, term := range idx.terms {
		idx.idf[pos] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	// Per-document tf-idf vectors, L2-normalized. A zero-norm vector
	// stays zero and scores 0 against every query.
	idx.vectors = make([][]float64, len(idx.docs))
	for i, doc := range idx.docs {
		vec := make([]float64, len(idx.terms))
		for _, term := range doc.Tokens {
			pos := idx.vocab[term]
			vec[pos] += idx.idf[pos]
		}
		normalize(vec)
		idx.vectors[i] = vec
	}

	return idx, nil
}

// QueryVector computes the L2-normalized tf-idf vector for query tokens
// against the frozen vocabulary. Out-of-vocabulary terms are dropped.
// The zero vector signals no overlap with the corpus.
func (idx *Index) QueryVector(tokens []string) []float64 {
	vec := make([]float64, len(idx.terms))
	for _, term := range tokens {
		if pos, ok := idx.vocab[term]; ok {
			vec[pos] += idx.idf[pos]
		}
	}
	normalize(vec)
	return vec
}

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() int { return len(idx.docs) }

// VocabSize returns the number of distinct terms.
func (idx *Index) VocabSize() int { return len(idx.terms) }

// Doc returns the i-th document in input order.
func (idx *Index) Doc(i int) domain.Document { return idx.docs[i] }

// Vector returns the i-th document's normalized weight vector.
func (idx *Index) Vector(i int) []float64 { return idx.vectors[i] }

// Position returns the vocabulary position of term.
func (idx *Index) Position(term string) (int, bool) {
	pos, ok := idx.vocab[term]
	return pos, ok
}

// IDF returns the stored inverse-document-frequency weight for term,
// or 0 when the term is out of vocabulary.
func (idx *Index) IDF(term string) float64 {
	if pos, ok := idx.vocab[term]; ok {
		return idx.idf[pos]
	}
	return 0
}

// Stats returns summary statistics for the index.
func (idx *Index) Stats() domain.IndexStats {
	return domain.IndexStats{TotalDocs: len(idx.docs), VocabSize: len(idx.terms)}
}

func normalize(vec []float64) {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] /= norm
	}
}
