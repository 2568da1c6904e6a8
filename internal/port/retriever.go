package port

import "kbdraft/internal/domain"

// Retriever defines the interface for searching the knowledge base.
type Retriever interface {
	// Search returns the top-k documents matching the query, best first.
	// An empty result list is a valid outcome, not an error.
	Search(query string, k int) ([]domain.ScoredResult, error)
}
