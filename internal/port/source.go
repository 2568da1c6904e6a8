package port

import "kbdraft/internal/domain"

// DocumentSource loads the knowledge-base corpus. Order must be
// deterministic: the retriever tie-breaks by document input order.
type DocumentSource interface {
	Load() ([]domain.Document, error)
}
