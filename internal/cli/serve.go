package cli

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kbdraft/internal/adapter/analyzer"
	"kbdraft/internal/adapter/kb"
	"kbdraft/internal/adapter/llm"
	"kbdraft/internal/adapter/trace"
	"kbdraft/internal/metrics"
	"kbdraft/internal/port"
	"kbdraft/internal/server"
	"kbdraft/internal/usecase"
)

// traceStore converts a possibly-nil *trace.Store into a port.TraceStore
// without producing a non-nil interface around a nil pointer.
func traceStore(s *trace.Store) port.TraceStore {
	if s == nil {
		return nil
	}
	return s
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP draft service",
	Long: `Build the knowledge-base index and serve draft replies over HTTP.

Endpoints:
  POST /draft-reply    generate a grounded draft for a ticket
  GET  /search?q=...   direct knowledge-base retrieval
  POST /admin/reload   rebuild the index from disk
  GET  /health         liveness + index stats
  GET  /metrics        Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load the corpus and build the index before accepting traffic.
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

	stats := retrieveUC.Stats()
	log.WithField("total_docs", stats.TotalDocs).
		WithField("vocab_size", stats.VocabSize).
		Info("knowledge base indexed")

	var draftUC *usecase.DraftUseCase
	if cfg.LLM.Enabled {
		client := llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKeyEnv, cfg.LLM.Temperature, cfg.LLM.MaxTokens)

		verifyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := client.Verify(verifyCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("api key verification failed: %w", err)
		}
		log.WithField("model", cfg.LLM.Model).Info("api key verified")

		var traces *trace.Store
		if cfg.Trace.Enabled {
			traces, err = trace.NewStore(cfg.Trace.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open trace store: %w", err)
			}
			defer traces.Close()
		}

		// A nil *trace.Store must stay a nil interface inside the use case.
		draftUC = usecase.NewDraftUseCase(retrieveUC, client, traceStore(traces), log, cfg.Retrieve.TopK, cfg.LLM.PromptVersion)
	} else {
		log.Warn("draft generation disabled; serving retrieval only")
	}

	srv := server.New(draftUC, retrieveUC, loader, log, metrics.New())

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", port).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
