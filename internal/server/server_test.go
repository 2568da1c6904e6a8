package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/domain"
	"kbdraft/internal/metrics"
	"kbdraft/internal/port"
	"kbdraft/internal/usecase"
)

type stubLLM struct {
	reply string
}

func (s *stubLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (port.GenerateResult, error) {
	return port.GenerateResult{
		Text:  s.reply,
		Model: "gpt-4o-mini",
		Usage: domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (s *stubLLM) Verify(ctx context.Context) error { return nil }
func (s *stubLLM) ModelName() string                { return "gpt-4o-mini" }

type stubSource struct {
	docs []domain.Document
	err  error
}

func (s *stubSource) Load() ([]domain.Document, error) { return s.docs, s.err }

func supportDocs() []domain.Document {
	return []domain.Document{
		{SourceID: "refund", Text: "refund policy allows returns within 30 days"},
		{SourceID: "shipping", Text: "shipping takes 3 to 5 business days"},
		{SourceID: "support", Text: "contact support for pricing questions"},
	}
}

func newTestServer(t *testing.T) (*Server, *stubSource) {
	t.Helper()

	retrieveUC := usecase.NewRetrieveUseCase(analyzer.NewTokenizer(1), 3, 300)
	require.NoError(t, retrieveUC.Rebuild(supportDocs()))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	entry := logrus.NewEntry(log)

	draftUC := usecase.NewDraftUseCase(retrieveUC, &stubLLM{reply: "Sure, 30 days!"}, nil, entry, 3, "v1")
	source := &stubSource{docs: supportDocs()}

	return New(draftUC, retrieveUC, source, entry, metrics.New()), source
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.TotalDocs)
	assert.Greater(t, resp.VocabSize, 0)
}

func TestSearch(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=refund", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "refund", resp.Results[0].SourceID)
	assert.Greater(t, resp.Results[0].Score, 0.0)
	assert.Contains(t, resp.Results[0].Excerpt, "refund")
}

func TestSearch_MissingQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_BadK(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=refund&k=zero", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_NoMatchesReturnsEmptyList(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=xyzzy", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
}

func TestDraftReply(t *testing.T) {
	srv, _ := newTestServer(t)

	body, _ := json.Marshal(domain.Ticket{
		TicketID:        "T-7",
		Subject:         "Refund",
		CustomerMessage: "how long do I have to request a refund",
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/draft-reply", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var reply domain.DraftReply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "Sure, 30 days!", reply.Draft)
	require.NotEmpty(t, reply.Citations)
	assert.Equal(t, "refund", reply.Citations[0].SourceID)
	assert.Equal(t, "v1", reply.Metadata.PromptVersion)
}

func TestDraftReply_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: "{"},
		{name: "missing ticket id", body: `{"customer_message":"hi"}`},
		{name: "missing message", body: `{"ticket_id":"T-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/draft-reply", bytes.NewBufferString(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestDraftReply_Disabled(t *testing.T) {
	retrieveUC := usecase.NewRetrieveUseCase(analyzer.NewTokenizer(1), 3, 300)
	require.NoError(t, retrieveUC.Rebuild(supportDocs()))

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	srv := New(nil, retrieveUC, &stubSource{docs: supportDocs()}, logrus.NewEntry(log), metrics.New())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/draft-reply", bytes.NewBufferString(`{"ticket_id":"T-1","customer_message":"hi"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReload(t *testing.T) {
	srv, source := newTestServer(t)

	source.docs = []domain.Document{
		{SourceID: "warranty", Text: "warranty covers manufacturing defects"},
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp reloadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reloaded", resp.Status)
	assert.Equal(t, 1, resp.TotalDocs)

	// Old corpus no longer matches.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=refund", nil))
	var search searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &search))
	assert.Empty(t, search.Results)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=refund", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), "retrievals_total")
}
