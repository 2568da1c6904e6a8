package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"kbdraft/internal/adapter/llm"
	"kbdraft/internal/domain"
	"kbdraft/internal/port"
)

// SystemPrompt frames the model as a support agent drafting a reply.
const SystemPrompt = "You are a helpful customer support agent with a fun and engaging attitude. " +
	"Draft a short, professional, and friendly reply to the customer's message."

// DraftUseCase orchestrates a draft reply: retrieve grounding snippets,
// call the model with them injected, and record a trace. Retrieval
// coming back empty means "no grounding available" and the draft
// proceeds without citations.
type DraftUseCase struct {
	retrieve      *RetrieveUseCase
	model         port.LLM
	traces        port.TraceStore
	log           *logrus.Entry
	topK          int
	promptVersion string
}

// NewDraftUseCase creates the use case. traces may be nil to disable
// trace recording.
func NewDraftUseCase(
	retrieve *RetrieveUseCase,
	model port.LLM,
	traces port.TraceStore,
	log *logrus.Entry,
	topK int,
	promptVersion string,
) *DraftUseCase {
	return &DraftUseCase{
		retrieve:      retrieve,
		model:         model,
		traces:        traces,
		log:           log,
		topK:          topK,
		promptVersion: promptVersion,
	}
}

// Draft generates a reply draft for the ticket.
func (u *DraftUseCase) Draft(ctx context.Context, ticket domain.Ticket) (domain.DraftReply, error) {
	snippets, err := u.retrieve.Retrieve(ticket.CustomerMessage, u.topK)
	if err != nil {
		return domain.DraftReply{}, fmt.Errorf("retrieval failed: %w", err)
	}

	userContent := BuildUserContent(ticket.CustomerMessage, snippets)

	u.log.WithFields(logrus.Fields{
		"ticket_id":     ticket.TicketID,
		"model":         u.model.ModelName(),
		"snippet_count": len(snippets),
	}).Info("generating draft")

	start := time.Now()
	result, err := u.model.Generate(ctx, SystemPrompt, userContent)
	latencyMS := time.Since(start).Milliseconds()
	if err != nil {
		return domain.DraftReply{}, fmt.Errorf("generation failed: %w", err)
	}

	cost := llm.EstimateCost(result.Model, result.Usage)
	if cost == nil {
		u.log.WithField("model", result.Model).Warn("no pricing available for model")
	}

	reply := domain.DraftReply{
		Draft:     result.Text,
		Citations: snippets,
		Metadata: domain.DraftMetadata{
			Model:         result.Model,
			PromptVersion: u.promptVersion,
			LatencyMS:     latencyMS,
			Usage:         result.Usage,
			CostUSD:       cost,
			SnippetCount:  len(snippets),
		},
	}

	u.recordTrace(ticket, reply)

	return reply, nil
}

func (u *DraftUseCase) recordTrace(ticket domain.Ticket, reply domain.DraftReply) {
	if u.traces == nil {
		return
	}

	sources := make([]string, len(reply.Citations))
	for i, c := range reply.Citations {
		sources[i] = c.SourceID
	}

	rec := domain.TraceRecord{
		TicketID:   ticket.TicketID,
		LatencyMS:  reply.Metadata.LatencyMS,
		Model:      reply.Metadata.Model,
		Usage:      reply.Metadata.Usage,
		CostUSD:    reply.Metadata.CostUSD,
		Sources:    sources,
		DraftChars: len(reply.Draft),
	}
	if _, err := u.traces.Put(rec); err != nil {
		u.log.WithError(err).Warn("failed to record trace")
	}
}

// BuildUserContent assembles the user message with the retrieved
// knowledge-base snippets appended, numbered in rank order.
func BuildUserContent(customerMessage string, snippets []domain.ScoredResult) string {
	if len(snippets) == 0 {
		return customerMessage
	}

	var sb strings.Builder
	sb.WriteString(customerMessage)
	sb.WriteString("\n\nRelevant knowledge base information:\n")
	for i, s := range snippets {
		sb.WriteString(fmt.Sprintf("\n[%d] From %s:\n%s\n", i+1, s.SourceID, s.Excerpt))
	}
	return sb.String()
}
