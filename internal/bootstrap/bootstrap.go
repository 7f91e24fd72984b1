package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avelinsk/finpaper/internal/config"
	"github.com/avelinsk/finpaper/internal/core/extraction"
	"github.com/avelinsk/finpaper/internal/core/ports"
	"github.com/avelinsk/finpaper/internal/core/schema"
	"github.com/avelinsk/finpaper/internal/core/usecase"
	"github.com/avelinsk/finpaper/internal/infrastructure/inspect"
	"github.com/avelinsk/finpaper/internal/infrastructure/llm/gemini"
	"github.com/avelinsk/finpaper/internal/infrastructure/queue/nats"
	"github.com/avelinsk/finpaper/internal/infrastructure/repository/postgres"
	"github.com/avelinsk/finpaper/internal/infrastructure/resilience"
	"github.com/avelinsk/finpaper/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     *nats.Queue
	Repo      ports.DocumentRepository
	Storage   *localfs.Storage
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	SearchUC  ports.DocumentSearcher
	ReplayUC  ports.DocumentReprocessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath, cfg.StoragePublicBaseURL, cfg.StorageSigningSecret)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, logger)
	if err != nil {
		return nil, fmt.Errorf("init job queue: %w", err)
	}

	model := gemini.New(gemini.Config{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		Model:       cfg.GeminiModel,
		Temperature: cfg.GeminiTemperature,
		Timeout:     cfg.GeminiTimeout,
	}, resilience.NewExecutor(resilience.InferenceConfig()), logger)

	registry := schema.NewRegistry()
	pipeline := extraction.NewPipeline(model, registry, logger)
	inspector := inspect.New()
	queryExecutor := postgres.NewGuardedQueryExecutor(db)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue, inspector, logger)
	processUC := usecase.NewProcessDocumentUseCase(repo, storage, pipeline, logger)
	searchUC := usecase.NewSearchDocumentsUseCase(model, queryExecutor, registry, logger)
	replayUC := usecase.NewReprocessDocumentUseCase(repo, queue, logger)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:     queue,
		Repo:      repo,
		Storage:   storage,
		IngestUC:  ingestUC,
		ProcessUC: processUC,
		SearchUC:  searchUC,
		ReplayUC:  replayUC,

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
