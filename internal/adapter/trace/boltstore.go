package trace

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"kbdraft/internal/domain"
	"kbdraft/internal/port"
)

var bucketTraces = []byte("traces")

var _ port.TraceStore = (*Store)(nil)

// Store persists request traces in a BoltDB file. Records are keyed by a
// monotonically increasing sequence so List can walk newest-first.
type Store struct {
	db *bbolt.DB
}

// NewStore opens (creating if needed) the trace database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create trace dir: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open trace db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTraces)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Put appends a record, assigning its ID from the bucket sequence.
func (s *Store) Put(rec domain.TraceRecord) (string, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	var id string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTraces)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = fmt.Sprintf("%016x", seq)
		rec.ID = id

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(seqKey(seq), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store trace: %w", err)
	}
	return id, nil
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (domain.TraceRecord, error) {
	seq, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return domain.TraceRecord{}, fmt.Errorf("invalid trace id: %s", id)
	}

	var rec domain.TraceRecord
	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTraces).Get(seqKey(seq))
		if data == nil {
			return fmt.Errorf("trace not found: %s", id)
		}
		return json.Unmarshal(data, &rec)
	})
	return rec, err
}

// List returns up to limit records, newest first.
func (s *Store) List(limit int) ([]domain.TraceRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []domain.TraceRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketTraces).Cursor()
		for k, v := c.Last(); k != nil && len(records) < limit; k, v = c.Prev() {
			var rec domain.TraceRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// Prune deletes records created before the cutoff.
func (s *Store) Prune(before time.Time) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTraces)
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec domain.TraceRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.CreatedAt.Before(before) {
				if err := c.Delete(); err != nil {
					return err
				}
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
