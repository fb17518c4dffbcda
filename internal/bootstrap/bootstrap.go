package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dkozyrev/support-docs-bot/internal/config"
	"github.com/dkozyrev/support-docs-bot/internal/core/domain"
	"github.com/dkozyrev/support-docs-bot/internal/core/ports"
	"github.com/dkozyrev/support-docs-bot/internal/core/usecase"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/chunking"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/corpus"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/extractor"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/llm/gemini"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/queue/nats"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/repository/postgres"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/resilience"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/storage/localfs"
	"github.com/dkozyrev/support-docs-bot/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Mode   domain.RetrievalMode

	Queue    ports.MessageQueue
	Docs     ports.DocumentRepository
	Sessions ports.SessionStore

	AnswerUC  ports.AnswerService
	StatusUC  ports.StatusReporter
	IngestUC  *usecase.IngestDocumentUseCase
	ProcessUC ports.DocumentProcessor

	closeFn func()
}

// New wires the whole pipeline. Startup fails fast on a missing
// generation credential or unreachable Postgres; the vector backend is
// probed once and a failure downgrades retrieval to keyword-only.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("init generation client: %w", domain.ErrCredentialMissing)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	if err := docs.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	sessions := postgres.NewSessionRepository(db)
	if err := sessions.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure sessions schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	geminiClient, err := gemini.NewWithOptions(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiEmbedModel, gemini.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init generation client: %w", err)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	registry := extractor.NewRegistry(storage)

	corpusStore := corpus.NewStore()
	source := corpus.NewDirectorySource(cfg.DataDir, chunker, registry)
	if err := corpusStore.Load(ctx, source); err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	mode := resolveRetrievalMode(ctx, cfg, corpusStore, vectorDB)

	retriever := usecase.NewRetriever(corpusStore, geminiClient, vectorDB, usecase.RetrieverConfig{
		Mode:            mode,
		ContextMaxChars: cfg.ContextMaxChars,
		DisplayMaxChars: cfg.DisplayMaxChars,
	})
	answerUC := usecase.NewAnswerUseCase(retriever, geminiClient, usecase.AnswerConfig{
		Tiers:        domain.ParseModelTier(cfg.GeminiModels),
		TopK:         cfg.RetrieveTopK,
		MaxAttempts:  cfg.MaxGenerationAttempts,
		QuotaBackoff: cfg.QuotaBackoff,
	})
	statusUC := usecase.NewStatusUseCase(corpusStore, geminiClient, vectorDB, usecase.StatusConfig{
		APIKeyPresent: cfg.GeminiAPIKey != "",
		Mode:          mode,
		ProbeTimeout:  cfg.StatusProbeTimeout,
	})
	ingestUC := usecase.NewIngestDocumentUseCase(docs, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(docs, registry, chunker, geminiClient, vectorDB)

	return &App{
		Config: cfg,
		Mode:   mode,

		Queue:    queue,
		Docs:     docs,
		Sessions: sessions,

		AnswerUC:  answerUC,
		StatusUC:  statusUC,
		IngestUC:  ingestUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// resolveRetrievalMode picks the retrieval path once at startup. "auto"
// probes the vector backend with a short deadline; an unreachable backend
// means keyword-only until the next restart.
func resolveRetrievalMode(ctx context.Context, cfg config.Config, store *corpus.Store, vectorDB *qdrant.Client) domain.RetrievalMode {
	switch cfg.RetrievalMode {
	case "semantic":
		return domain.ModeSemantic
	case "keyword":
		return domain.ModeKeywordOnly
	}

	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := vectorDB.Healthy(probeCtx); err != nil {
		slog.WarnContext(ctx, "vector_backend_unavailable",
			slog.String("url", cfg.QdrantURL),
			slog.String("error", err.Error()),
		)
		if store.IsEmpty() {
			return domain.ModeUnavailable
		}
		return domain.ModeKeywordOnly
	}
	return domain.ModeSemantic
}
