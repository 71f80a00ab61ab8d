package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/config"
	"github.com/velikanov/hybrid-query-engine/internal/core/ports"
	"github.com/velikanov/hybrid-query-engine/internal/core/usecase"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/cache/lru"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/chunking"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/extractor/plaintext"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/llm/ollama"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/queue/nats"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/repository/postgres"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/resilience"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/schema/static"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/storage/localfs"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue  ports.MessageQueue
	Repo   ports.DocumentRepository
	Vector ports.VectorStore

	ResolveUC  ports.QueryResolver
	PlanUC     ports.StatementPlanner
	SearchUC   ports.DocumentSearcher
	IngestUC   ports.DocumentIngestor
	IndexUC    ports.DocumentIndexer
	ReadUC     ports.DocumentReader
	RemoveUC   ports.DocumentRemover
	Classifier ports.QueryClassifier

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
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

	ollamaClient := ollama.New(
		cfg.OllamaURL,
		cfg.OllamaGenModel,
		cfg.OllamaEmbedModel,
		time.Duration(cfg.OllamaTimeoutSeconds)*time.Second,
	)
	oracle := ollama.NewOracle(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, usecase.AllCollections(), executor)
	chunker := chunking.NewSplitter()
	extractor := plaintext.NewExtractor(storage)
	stageCache := lru.New(cfg.CacheSize, time.Duration(cfg.CacheMaxTTLMinutes)*time.Minute)

	var schemaProvider ports.SchemaProvider
	if cfg.SchemaFilePath != "" {
		schemaProvider = static.NewProvider(cfg.SchemaFilePath)
	} else {
		schemaProvider = postgres.NewSchemaIntrospector(db, "documents")
	}

	draftTimeout := time.Duration(cfg.DraftTimeoutSeconds) * time.Second
	statementExecutor := postgres.NewStatementExecutor(db, draftTimeout)

	classifyUC := usecase.NewClassifyUseCase(oracle, stageCache, time.Duration(cfg.ClassifyTimeoutSeconds)*time.Second)
	planUC := usecase.NewGenerateSQLUseCase(oracle, schemaProvider, stageCache, draftTimeout)
	searchUC := usecase.NewSearchUseCase(embedder, vectorDB, stageCache)
	resolveUC := usecase.NewResolveUseCase(
		classifyUC,
		planUC,
		statementExecutor,
		searchUC,
		stageCache,
		time.Duration(cfg.PathTimeoutSeconds)*time.Second,
		cfg.DocumentSearchLimit,
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	indexUC := usecase.NewIndexDocumentUseCase(repo, extractor, chunker, embedder, vectorDB, cfg.EmbedBatchSize, cfg.EmbedConcurrency)
	readUC := usecase.NewGetDocumentUseCase(repo)
	removeUC := usecase.NewRemoveDocumentUseCase(repo, storage, vectorDB)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Vector: vectorDB,

		ResolveUC:  resolveUC,
		PlanUC:     planUC,
		SearchUC:   searchUC,
		IngestUC:   ingestUC,
		IndexUC:    indexUC,
		ReadUC:     readUC,
		RemoveUC:   removeUC,
		Classifier: classifyUC,

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
