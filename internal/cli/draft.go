package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/adapter/kb"
	"kbdraft/internal/adapter/llm"
	"kbdraft/internal/domain"
	"kbdraft/internal/usecase"
)

var (
	draftMessage string
	draftTicket  string
	draftSubject string
	draftDryRun  bool
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Generate a single draft reply from the command line",
	Long: `Retrieve grounding snippets for a customer message and generate a
draft reply. With --dry-run the assembled prompt is printed instead of
calling the model.

Examples:
  kbdraft draft -m "How long do I have to request a refund?"
  kbdraft draft -m "Where is my order?" --dry-run`,
	RunE: runDraft,
}

func init() {
	rootCmd.AddCommand(draftCmd)
	draftCmd.Flags().StringVarP(&draftMessage, "message", "m", "", "customer message (required)")
	draftCmd.Flags().StringVar(&draftTicket, "ticket", "cli", "ticket id")
	draftCmd.Flags().StringVar(&draftSubject, "subject", "", "ticket subject")
	draftCmd.Flags().BoolVar(&draftDryRun, "dry-run", false, "print the prompt instead of calling the model")
	draftCmd.MarkFlagRequired("message")
}

func runDraft(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := newLogger(cfg)

	loader := kb.NewLoader(cfg.KB.Dir, cfg.KB.Includes, cfg.KB.Excludes)
	docs, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	tokenizer := analyzer.NewTokenizer(cfg.Retrieve.MinTokenLength)
	retrieveUC := usecase.NewRetrieveUseCase(tokenizer, cfg.Retrieve.TopK, cfg.Retrieve.MaxExcerptChars)
	if err := retrieveUC.Rebuild(docs); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	if draftDryRun {
		snippets, err := retrieveUC.Retrieve(draftMessage, cfg.Retrieve.TopK)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}
		fmt.Println("--- system ---")
		fmt.Println(usecase.SystemPrompt)
		fmt.Println("--- user ---")
		fmt.Println(usecase.BuildUserContent(draftMessage, snippets))
		return nil
	}

	client := llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKeyEnv, cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	if err := client.Verify(cmd.Context()); err != nil {
		return fmt.Errorf("api key verification failed: %w", err)
	}

	draftUC := usecase.NewDraftUseCase(retrieveUC, client, nil, log, cfg.Retrieve.TopK, cfg.LLM.PromptVersion)

	reply, err := draftUC.Draft(cmd.Context(), domain.Ticket{
		TicketID:        draftTicket,
		Subject:         draftSubject,
		CustomerMessage: draftMessage,
	})
	if err != nil {
		return fmt.Errorf("draft failed: %w", err)
	}

	fmt.Println(reply.Draft)
	if len(reply.Citations) > 0 {
		fmt.Println("\nCitations:")
		for i, c := range reply.Citations {
			fmt.Printf("  [%d] %s (score: %.4f)\n", i+1, c.SourceID, c.Score)
		}
	}

	meta, _ := json.Marshal(reply.Metadata)
	fmt.Printf("\nMetadata: %s\n", meta)

	return nil
}
