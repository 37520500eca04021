package main

import (
	"fmt"
	"os"
	"path/filepath"

	configfile "github.com/mcpress/bookchat/internal/adapters/driven/config/file"
	ollamaembed "github.com/mcpress/bookchat/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/mcpress/bookchat/internal/adapters/driven/embedding/openai"
	"github.com/mcpress/bookchat/internal/adapters/driven/enrichment/postgres"
	anthropicllm "github.com/mcpress/bookchat/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/mcpress/bookchat/internal/adapters/driven/llm/ollama"
	openaillm "github.com/mcpress/bookchat/internal/adapters/driven/llm/openai"
	"github.com/mcpress/bookchat/internal/adapters/driven/storage/memory"
	textindex "github.com/mcpress/bookchat/internal/adapters/driven/textindex/sqlite"
	"github.com/mcpress/bookchat/internal/adapters/driven/vectorstore/chromem"
	"github.com/mcpress/bookchat/internal/adapters/driven/vectorstore/pgvector"
	"github.com/mcpress/bookchat/internal/adapters/driving/cli"
	"github.com/mcpress/bookchat/internal/core/ports/driven"
	"github.com/mcpress/bookchat/internal/core/services"
	"github.com/mcpress/bookchat/internal/ingest"
	"github.com/mcpress/bookchat/internal/logger"
)

// Build metadata, overridden at build time via ldflags.
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := configfile.NewConfigStore(os.Getenv("BOOKCHAT_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}

	cfg := services.ConfigFromEnv(services.ConfigFromStore(configStore, services.DefaultConfig()))
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	embedder, err := buildEmbedder()
	if err != nil {
		return err
	}

	index, err := buildVectorIndex(embedder)
	if err != nil {
		return err
	}
	defer index.Close()

	enrichment := buildEnrichmentStore()
	if enrichment != nil {
		defer enrichment.Close()
	}

	llm, err := buildLLM()
	if err != nil {
		return err
	}
	if llm != nil {
		defer llm.Close()
	}

	filter := services.NewRelevanceFilter(cfg.Relevance)
	assembler := services.NewContextAssembler(services.NewTokenCounter(), cfg.ContextTokenBudget)
	formatter := services.NewSourceFormatter(enrichment)
	retrieval := services.NewRetrievalService(index, filter, assembler, formatter, cfg)

	var chat *services.ChatService
	if llm != nil {
		chat = services.NewChatService(retrieval, llm)
	}

	ingestSvc := ingest.NewService(index, embedder, ingest.NewChunker())

	cli.SetVersion(version)
	cli.SetBuildInfo(commit, buildDate)
	if chat != nil {
		cli.SetServices(retrieval, chat, ingestSvc, configStore)
	} else {
		cli.SetServices(retrieval, nil, ingestSvc, configStore)
	}
	return cli.Execute()
}

// dataDir resolves the local data directory, creating it if needed.
func dataDir() (string, error) {
	dir := os.Getenv("BOOKCHAT_DATA_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".bookchat", "data")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// buildEmbedder selects the embedding provider from EMBEDDING_PROVIDER.
// The sqlite backend is lexical and needs no embedder, so "none" is a
// valid choice there.
func buildEmbedder() (driven.EmbeddingService, error) {
	switch provider := os.Getenv("EMBEDDING_PROVIDER"); provider {
	case "", "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL: os.Getenv("OLLAMA_BASE_URL"),
			Model:   os.Getenv("EMBEDDING_MODEL"),
		}), nil
	case "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  os.Getenv("EMBEDDING_MODEL"),
		})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

// buildVectorIndex selects the index backend from VECTOR_BACKEND.
// chromem is the local default; pgvector needs DATABASE_URL; sqlite is
// the lexical fallback for machines without an embedding service.
func buildVectorIndex(embedder driven.EmbeddingService) (driven.VectorIndex, error) {
	backend := os.Getenv("VECTOR_BACKEND")
	if backend == "" {
		backend = "chromem"
	}

	switch backend {
	case "pgvector":
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			return nil, fmt.Errorf("pgvector backend requires DATABASE_URL")
		}
		return pgvector.NewStore(dsn, embedder)
	case "chromem":
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		return chromem.NewStore(filepath.Join(dir, "chromem"), embedder)
	case "sqlite":
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		return textindex.NewIndex(dir)
	case "memory":
		return memory.NewVectorIndex(embedder), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", backend)
	}
}

// buildEnrichmentStore connects to the book catalogue when DATABASE_URL
// is set. Without it sources fall back to chunk metadata.
func buildEnrichmentStore() driven.EnrichmentStore {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil
	}

	store, err := postgres.NewStore(dsn)
	if err != nil {
		logger.Warn("Enrichment store unavailable: %v", err)
		return nil
	}
	return store
}

// buildLLM selects the chat provider from LLM_PROVIDER. A missing API
// key disables chat rather than failing startup, so search and ingest
// keep working.
func buildLLM() (driven.LLMService, error) {
	switch provider := os.Getenv("LLM_PROVIDER"); provider {
	case "", "ollama":
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: os.Getenv("OLLAMA_BASE_URL"),
			Model:   os.Getenv("LLM_MODEL"),
		}), nil
	case "openai":
		if os.Getenv("OPENAI_API_KEY") == "" {
			logger.Warn("OPENAI_API_KEY not set, chat disabled")
			return nil, nil
		}
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  os.Getenv("LLM_MODEL"),
		})
	case "anthropic":
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			logger.Warn("ANTHROPIC_API_KEY not set, chat disabled")
			return nil, nil
		}
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  os.Getenv("LLM_MODEL"),
		})
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
