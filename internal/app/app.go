// Package app assembles the study assistant from configuration. It is shared by the API
// server and the command line tool.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"study-assistant/internal/config"
	"study-assistant/internal/contextutil"
	"study-assistant/internal/indexer"
	"study-assistant/internal/llm"
	"study-assistant/internal/rag"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/service"
	"study-assistant/internal/session"
	"study-assistant/internal/storage"
	"study-assistant/internal/vectorstore"
)

// Stack is a fully wired study assistant.
type Stack struct {
	DB       *sql.DB
	Vectors  vectorstore.VectorStore
	Sessions *session.Manager
	Service  service.StudyService
	// Engine is nil when the LLM is disabled.
	Engine *rag.Engine

	closers []func() error
}

// Close releases the database and the vector backend.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build opens storage, connects the vector backend, validates the embedder and wires the
// service. On error everything opened so far is closed again.
func Build(ctx context.Context, cfg *config.Config) (_ *Stack, err error) {
	logger := contextutil.LoggerFromContext(ctx)
	stack := &Stack{}
	defer func() {
		if err != nil {
			_ = stack.Close()
		}
	}()

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	stack.DB = db
	stack.closers = append(stack.closers, db.Close)

	if err := storage.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.InfoContext(ctx, "database initialized", "path", cfg.DBPath)

	vectors, closeVectors, err := NewVectorStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	stack.Vectors = vectors
	if closeVectors != nil {
		stack.closers = append(stack.closers, closeVectors)
	}

	embedder, err := NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(session.Config{
		Embedder: embedder,
		Vectors:  vectors,
		Splitter: retrieval.Splitter{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
	}, storage.NewSessionRepo(db))
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	stack.Sessions = sessions

	if !cfg.LLMDisabled {
		client := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName,
			llm.WithRequestsPerSecond(cfg.LLMRequestsPerSecond))
		stack.Engine = rag.NewEngine(client, rag.Options{
			Temperature: cfg.LLMTemperature,
			MaxTokens:   cfg.LLMMaxTokens,
		})
		logger.InfoContext(ctx, "RAG engine initialized", "model", cfg.LLMModelName)
	} else {
		logger.WarnContext(ctx, "LLM disabled, question answering is unavailable")
	}

	documents := storage.NewDocumentRepo(db)
	pipeline := indexer.NewPipeline(documents, storage.NewChunkRepo(db))
	stack.Service = service.NewStudyService(sessions, pipeline, documents, stack.Engine, service.Config{
		DefaultK:           cfg.DefaultK,
		MaxK:               cfg.MaxK,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		EmbeddingModelName: cfg.EmbeddingModelName,
	})
	return stack, nil
}

// NewVectorStore returns the configured vector backend and, for Qdrant, a close function.
func NewVectorStore(ctx context.Context, cfg *config.Config) (vectorstore.VectorStore, func() error, error) {
	logger := contextutil.LoggerFromContext(ctx)

	switch cfg.IndexBackend {
	case config.IndexBackendQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Qdrant client: %w", err)
		}
		if err := store.EnsureCollection(ctx, cfg.EmbeddingDim); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("failed to ensure Qdrant collection: %w", err)
		}
		logger.InfoContext(ctx, "Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.EmbeddingDim)
		return store, store.Close, nil
	default:
		logger.InfoContext(ctx, "using in-memory vector store")
		return vectorstore.NewMemoryStore(), nil, nil
	}
}

// NewEmbedder returns the configured embedder. Remote embedders are probed once so a
// dimension mismatch fails at startup instead of on the first upload.
func NewEmbedder(ctx context.Context, cfg *config.Config) (retrieval.Embedder, error) {
	logger := contextutil.LoggerFromContext(ctx)

	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderOpenAI:
		embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDim,
			llm.WithRequestsPerSecond(cfg.LLMRequestsPerSecond))
		testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
		if err != nil {
			return nil, fmt.Errorf("failed to validate embedding client: %w", err)
		}
		if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.EmbeddingDim {
			return nil, fmt.Errorf("embedding vector size mismatch: expected %d", cfg.EmbeddingDim)
		}
		logger.InfoContext(ctx, "embedding client validated", "model", cfg.EmbeddingModelName, "vector_size", cfg.EmbeddingDim)
		return embedder, nil
	default:
		embedder, err := llm.NewHashEmbedder(cfg.EmbeddingDim)
		if err != nil {
			return nil, err
		}
		logger.InfoContext(ctx, "using offline hash embedder", "vector_size", cfg.EmbeddingDim)
		return embedder, nil
	}
}
