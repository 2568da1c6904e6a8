package trace

import (
	"path/filepath"
	"testing"
	"time"

	"kbdraft/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "traces.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	s := newTestStore(t)

	cost := 0.00042
	id, err := s.Put(domain.TraceRecord{
		TicketID:   "T-1",
		LatencyMS:  812,
		Model:      "gpt-4o-mini",
		Usage:      domain.TokenUsage{PromptTokens: 120, CompletionTokens: 80, TotalTokens: 200},
		CostUSD:    &cost,
		Sources:    []string{"refund", "shipping"},
		DraftChars: 340,
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("expected non-empty trace id")
	}

	rec, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if rec.TicketID != "T-1" || rec.Model != "gpt-4o-mini" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.Usage.TotalTokens != 200 {
		t.Errorf("usage not round-tripped: %+v", rec.Usage)
	}
	if rec.CostUSD == nil || *rec.CostUSD != cost {
		t.Errorf("cost not round-tripped: %v", rec.CostUSD)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Get("00000000000000ff"); err == nil {
		t.Error("expected error for missing trace")
	}
	if _, err := s.Get("not-an-id"); err == nil {
		t.Error("expected error for malformed id")
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)

	for _, ticket := range []string{"T-1", "T-2", "T-3"} {
		if _, err := s.Put(domain.TraceRecord{TicketID: ticket}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.List(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].TicketID != "T-3" || records[1].TicketID != "T-2" {
		t.Errorf("expected newest first, got %v", records)
	}
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)

	old := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := s.Put(domain.TraceRecord{TicketID: "old", CreatedAt: old}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put(domain.TraceRecord{TicketID: "new"}); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.Prune(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned record, got %d", deleted)
	}

	records, err := s.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].TicketID != "new" {
		t.Errorf("expected only the new record, got %v", records)
	}
}
