package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/adapter/index"
	"kbdraft/internal/adapter/kb"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Validate the knowledge base and report index stats",
	Long: `Load the configured knowledge base, build the tf-idf index, and print
its dimensions. Useful as a pre-deploy check that the corpus is
non-empty and tokenizes as expected.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	loader := kb.NewLoader(cfg.KB.Dir, cfg.KB.Includes, cfg.KB.Excludes)
	docs, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load knowledge base: %w", err)
	}

	fmt.Printf("Loaded %d documents from %s\n", len(docs), cfg.KB.Dir)

	tokenizer := analyzer.NewTokenizer(cfg.Retrieve.MinTokenLength)

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Tokenizing"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	totalTokens := 0
	for i := range docs {
		docs[i].Tokens = tokenizer.Tokenize(docs[i].Text)
		totalTokens += len(docs[i].Tokens)
		bar.Add(1)
	}

	idx, err := index.Build(docs, tokenizer)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	stats := idx.Stats()
	fmt.Printf("\nIndex built:\n")
	fmt.Printf("  Documents:       %d\n", stats.TotalDocs)
	fmt.Printf("  Vocabulary size: %d\n", stats.VocabSize)
	fmt.Printf("  Total tokens:    %d\n", totalTokens)

	for i := 0; i < idx.DocCount(); i++ {
		doc := idx.Doc(i)
		if len(doc.Tokens) == 0 {
			fmt.Printf("  Warning: %s has no tokens and will never match\n", doc.SourceID)
		}
	}

	return nil
}
