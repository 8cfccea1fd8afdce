// Package bootstrap wires configuration into concrete adapters and use
// cases shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karisazi/faq-chatbot/internal/config"
	"github.com/karisazi/faq-chatbot/internal/core/ports"
	"github.com/karisazi/faq-chatbot/internal/core/usecase"
	"github.com/karisazi/faq-chatbot/internal/infrastructure/cache/memory"
	"github.com/karisazi/faq-chatbot/internal/infrastructure/ingest/workbook"
	"github.com/karisazi/faq-chatbot/internal/infrastructure/llm/openai"
	"github.com/karisazi/faq-chatbot/internal/infrastructure/queue/nats"
	"github.com/karisazi/faq-chatbot/internal/infrastructure/repository/postgres"
	"github.com/karisazi/faq-chatbot/internal/infrastructure/resilience"
	"github.com/karisazi/faq-chatbot/internal/infrastructure/storage/localfs"
	"github.com/karisazi/faq-chatbot/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue    ports.MessageQueue
	Sources  ports.SourceRepository
	VectorDB ports.VectorIndex

	ChatUC    ports.ChatService
	IngestUC  ports.SourceIngestor
	ProcessUC ports.SourceProcessor

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
	repo := postgres.NewSourceRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy(), logger)
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	llm := openai.New(openai.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		EmbedModel:  cfg.LLMEmbedModel,
		ChatModel:   cfg.LLMChatModel,
		Temperature: float32(cfg.LLMTemperature),
	}, executor, logger)

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantProductCollection, cfg.QdrantCustomerCollection)
	cache := memory.NewAnswerCache(cfg.ChatCacheCapacity)
	loader := workbook.NewLoader(storage)

	router := usecase.NewRouter(llm, logger)
	chatUC := usecase.NewChatUseCase(router, llm, index, llm, cache, usecase.ChatOptions{
		SearchBreadth:    cfg.ChatSearchBreadth,
		FinalK:           cfg.ChatFinalK,
		HistoryWindow:    cfg.ChatHistoryWindow,
		SynthesisTimeout: time.Duration(cfg.ChatSynthesisTimeout) * time.Second,
	}, logger)
	ingestUC := usecase.NewIngestSourceUseCase(repo, storage, queue)
	processUC := usecase.NewProcessSourceUseCase(repo, loader, llm, index)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:    queue,
		Sources:  repo,
		VectorDB: index,

		ChatUC:    chatUC,
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
