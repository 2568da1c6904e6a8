package domain

import "time"

// Document is a single knowledge-base entry, loaded once at startup.
type Document struct {
	SourceID string
	Text     string
	Tokens   []string
}

// ScoredResult is one retrieval hit: a document reference with its cosine
// similarity against the query and a supporting excerpt.
type ScoredResult struct {
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
	Excerpt  string  `json:"excerpt"`
}

// IndexStats describes a built index.
type IndexStats struct {
	TotalDocs int
	VocabSize int
}

// Ticket is an incoming support request.
type Ticket struct {
	TicketID        string `json:"ticket_id"`
	Subject         string `json:"subject"`
	CustomerMessage string `json:"customer_message"`
	Language        string `json:"language,omitempty"`
}

// DraftReply is the generated answer plus the retrieval results that
// grounded it. Citations are forwarded unchanged from the retriever.
type DraftReply struct {
	Draft     string         `json:"draft"`
	Citations []ScoredResult `json:"citations"`
	Metadata  DraftMetadata  `json:"metadata"`
}

// DraftMetadata carries generation details for observability.
type DraftMetadata struct {
	Model         string     `json:"model"`
	PromptVersion string     `json:"prompt_version"`
	LatencyMS     int64      `json:"latency_ms"`
	Usage         TokenUsage `json:"usage"`
	CostUSD       *float64   `json:"cost_usd,omitempty"`
	SnippetCount  int        `json:"snippet_count"`
}

// TokenUsage mirrors the usage block reported by the model API.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TraceRecord is one persisted request trace.
type TraceRecord struct {
	ID         string     `json:"id"`
	TicketID   string     `json:"ticket_id"`
	CreatedAt  time.Time  `json:"created_at"`
	LatencyMS  int64      `json:"latency_ms"`
	Model      string     `json:"model"`
	Usage      TokenUsage `json:"usage"`
	CostUSD    *float64   `json:"cost_usd,omitempty"`
	Sources    []string   `json:"sources,omitempty"`
	DraftChars int        `json:"draft_chars"`
}
