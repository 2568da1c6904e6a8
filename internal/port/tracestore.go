package port

import (
	"time"

	"kbdraft/internal/domain"
)

// TraceStore persists per-request traces for later inspection.
type TraceStore interface {
	// Put appends a record and returns its assigned ID.
	Put(rec domain.TraceRecord) (string, error)

	Get(id string) (domain.TraceRecord, error)

	// List returns the most recent records, newest first.
	List(limit int) ([]domain.TraceRecord, error)

	// Prune deletes records older than the cutoff and reports how many.
	Prune(before time.Time) (int, error)

	Close() error
}
