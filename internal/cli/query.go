package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/adapter/kb"
	"kbdraft/internal/usecase"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the knowledge base",
	Long: `Build the index from the configured knowledge base and run a single
retrieval query against it.

Examples:
  kbdraft query -q "refund policy"
  kbdraft query -q "shipping times" --top-k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

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

	results, err := retrieveUC.Retrieve(queryText, queryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s (score: %.4f) ---\n", i+1, r.SourceID, r.Score)
		fmt.Println(r.Excerpt)
		fmt.Println()
	}

	return nil
}
