package retriever

import (
	"reflect"
	"strings"
	"testing"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/adapter/index"
	"kbdraft/internal/domain"
)

func buildRetriever(t *testing.T, docs []domain.Document) *TFIDFRetriever {
	t.Helper()
	tok := analyzer.NewTokenizer(1)
	idx, err := index.Build(docs, tok)
	if err != nil {
		t.Fatal(err)
	}
	return NewTFIDFRetriever(idx, tok, 300)
}

func supportCorpus() []domain.Document {
	return []domain.Document{
		{SourceID: "refund", Text: "refund policy allows returns within 30 days"},
		{SourceID: "shipping", Text: "shipping takes 3 to 5 business days"},
		{SourceID: "support", Text: "contact support for pricing questions"},
	}
}

func TestSearch_EndToEndScenario(t *testing.T) {
	r := buildRetriever(t, supportCorpus())

	results, err := r.Search("how long do I have to request a refund", 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) == 0 || len(results) > 3 {
		t.Fatalf("expected 1-3 results, got %d", len(results))
	}
	if results[0].SourceID != "refund" {
		t.Errorf("expected 'refund' ranked first, got %q", results[0].SourceID)
	}
	if results[0].Score <= 0 {
		t.Errorf("expected positive score for top result, got %f", results[0].Score)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not in descending score order at %d", i)
		}
	}
	if !strings.Contains(results[0].Excerpt, "refund") {
		t.Errorf("expected excerpt to contain 'refund', got %q", results[0].Excerpt)
	}
	for _, res := range results {
		if res.SourceID == "support" {
			t.Error("zero-score document must not be returned")
		}
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	r := buildRetriever(t, supportCorpus())

	results, err := r.Search("", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result list for empty query, got %d", len(results))
	}
}

func TestSearch_OutOfVocabularyQuery(t *testing.T) {
	r := buildRetriever(t, supportCorpus())

	results, err := r.Search("xylophone zeppelin", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result list for unknown terms, got %d", len(results))
	}
}

func TestSearch_SelfSimilarityRanksFirst(t *testing.T) {
	r := buildRetriever(t, supportCorpus())

	results, err := r.Search("shipping takes 3 to 5 business days", 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if results[0].SourceID != "shipping" {
		t.Errorf("expected self-query to rank 'shipping' first, got %q", results[0].SourceID)
	}
	if results[0].Score < 0.999 {
		t.Errorf("self-similarity should be near 1, got %f", results[0].Score)
	}
}

func TestSearch_TruncatesToK(t *testing.T) {
	docs := []domain.Document{
		{SourceID: "a", Text: "widget assembly guide"},
		{SourceID: "b", Text: "widget troubleshooting"},
		{SourceID: "c", Text: "widget warranty terms"},
		{SourceID: "d", Text: "widget pricing overview"},
	}
	r := buildRetriever(t, docs)

	results, err := r.Search("widget", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestSearch_TieBreakByInputOrder(t *testing.T) {
	// Identical documents score identically; input order decides.
	docs := []domain.Document{
		{SourceID: "first", Text: "identical payload text"},
		{SourceID: "second", Text: "identical payload text"},
		{SourceID: "third", Text: "identical payload text"},
	}
	r := buildRetriever(t, docs)

	results, err := r.Search("payload", 3)
	if err != nil {
		t.Fatal(err)
	}

	got := make([]string, len(results))
	for i, res := range results {
		got[i] = res.SourceID
	}
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tie-break order = %v, want %v", got, want)
	}
}

func TestSearch_Deterministic(t *testing.T) {
	query := "how long do I have to request a refund"

	first := buildRetriever(t, supportCorpus())
	second := buildRetriever(t, supportCorpus())

	r1, err := first.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := second.Search(query, 3)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(r1, r2) {
		t.Errorf("retrieval not deterministic:\n%v\n%v", r1, r2)
	}
}

func TestSearch_NoNonPositiveScores(t *testing.T) {
	docs := append(supportCorpus(), domain.Document{SourceID: "empty", Text: ""})
	r := buildRetriever(t, docs)

	results, err := r.Search("refund days shipping support", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if res.Score <= 0 {
			t.Errorf("result %q has non-positive score %f", res.SourceID, res.Score)
		}
		if res.SourceID == "empty" {
			t.Error("zero-vector document must never be returned")
		}
	}
}

func TestSearch_ZeroK(t *testing.T) {
	r := buildRetriever(t, supportCorpus())

	results, err := r.Search("refund", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for k=0, got %d", len(results))
	}
}
