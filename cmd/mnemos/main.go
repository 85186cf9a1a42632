package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jaehoon-lim/mnemos/internal/config"
	"github.com/jaehoon-lim/mnemos/internal/embedder"
	"github.com/jaehoon-lim/mnemos/internal/service"
	"github.com/jaehoon-lim/mnemos/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "mnemos",
		Short: "Mnemos — classified episodic/semantic memory with weighted retrieval",
		Long:  "Mnemos classifies text memories as episodic or semantic, stores them in per-category vector collections, and retrieves them with weighted multi-collection search and optional time decay.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		classifyCmd(),
		rememberCmd(),
		searchCmd(),
		statsCmd(),
		forgetCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newEmbedder(logger *slog.Logger) embedder.Embedder {
	switch cfg.Embedding.Provider {
	case "ollama":
		return embedder.NewOllamaEmbedder(
			cfg.Embedding.Ollama.BaseURL,
			cfg.Embedding.Ollama.Model,
			int(cfg.Memory.VectorDimension),
			logger,
		)
	case "mock":
		return embedder.NewMockEmbedder(int(cfg.Memory.VectorDimension))
	default:
		return embedder.NewOpenAIEmbedder(
			cfg.Embedding.OpenAI.APIKey,
			cfg.Embedding.OpenAI.Model,
			int(cfg.Memory.VectorDimension),
			logger,
		)
	}
}

func newStore(logger *slog.Logger) (store.Store, error) {
	if cfg.Store.Backend == "chromem" {
		return store.NewChromemStore(
			cfg.Qdrant.CollectionPrefix,
			cfg.Memory.VectorDimension,
			logger,
		), nil
	}
	return store.NewQdrantStore(
		cfg.Qdrant.Host,
		cfg.Qdrant.GRPCPort,
		cfg.Qdrant.CollectionPrefix,
		cfg.Memory.VectorDimension,
		cfg.Qdrant.UseTLS,
		logger,
	)
}

func newService(logger *slog.Logger) (*service.Service, store.Store, error) {
	emb := newEmbedder(logger)
	st, err := newStore(logger)
	if err != nil {
		return nil, nil, err
	}
	svc := service.New(emb, st, service.Options{
		DecayWeight: cfg.Retrieval.DecayWeight,
		DecayRatio:  cfg.Retrieval.DecayRatio,
	}, logger)
	return svc, st, nil
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return s
}
