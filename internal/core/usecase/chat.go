package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
	"github.com/karisazi/faq-chatbot/internal/core/ports"
)

// FallbackAnswer is returned whenever retrieval finds nothing or synthesis
// fails. It is never cached so a later ingestion update gets retried.
const FallbackAnswer = "Maaf, saya belum dapat menemukan jawaban untuk pertanyaan tersebut. " +
	"Silakan hubungi Customer Care AXA untuk informasi lebih lanjut."

const (
	defaultSearchBreadth    = 20
	defaultFinalK           = 3
	defaultHistoryWindow    = 6
	defaultSynthesisTimeout = 45 * time.Second
)

// ChatOptions tune the orchestration pipeline; zero values take defaults.
type ChatOptions struct {
	SearchBreadth    int
	FinalK           int
	HistoryWindow    int
	SynthesisTimeout time.Duration
}

func (o ChatOptions) normalize() ChatOptions {
	if o.SearchBreadth <= 0 {
		o.SearchBreadth = defaultSearchBreadth
	}
	if o.FinalK <= 0 {
		o.FinalK = defaultFinalK
	}
	if o.HistoryWindow <= 0 {
		o.HistoryWindow = defaultHistoryWindow
	}
	if o.SynthesisTimeout <= 0 {
		o.SynthesisTimeout = defaultSynthesisTimeout
	}
	return o
}

// ChatUseCase composes routing, dual-index retrieval, re-ranking, synthesis
// and the answer cache. All pipeline stages degrade to natural-language
// fallbacks; the caller never sees a raw stage error.
type ChatUseCase struct {
	router    *Router
	embedder  ports.Embedder
	index     ports.VectorIndex
	generator ports.AnswerGenerator
	cache     ports.AnswerCache
	opts      ChatOptions
	logger    *slog.Logger
}

func NewChatUseCase(
	router *Router,
	embedder ports.Embedder,
	index ports.VectorIndex,
	generator ports.AnswerGenerator,
	cache ports.AnswerCache,
	opts ChatOptions,
	logger *slog.Logger,
) *ChatUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatUseCase{
		router:    router,
		embedder:  embedder,
		index:     index,
		generator: generator,
		cache:     cache,
		opts:      opts.normalize(),
		logger:    logger,
	}
}

func (uc *ChatUseCase) Answer(ctx context.Context, query string, history []domain.ChatTurn) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat answer", fmt.Errorf("query is empty"))
	}

	if cached, ok := uc.cache.Get(query); ok {
		return &domain.Answer{Text: cached, Cached: true}, nil
	}

	category := uc.router.Route(ctx, query)

	candidates := uc.retrieve(ctx, category, query)
	if len(candidates) == 0 {
		return &domain.Answer{
			Text:           FallbackAnswer,
			Category:       category,
			FallbackReason: "no_context",
		}, nil
	}

	features := ExtractFeatures(query)
	final := Rerank(candidates, features, query, uc.opts.FinalK)

	synthCtx, cancel := context.WithTimeout(ctx, uc.opts.SynthesisTimeout)
	defer cancel()

	answerText, err := uc.generator.GenerateAnswer(synthCtx, query, uc.buildContext(final, history))
	if err != nil {
		uc.logger.Warn("answer_synthesis_failed", "error", err, "category", string(category))
		return &domain.Answer{
			Text:           FallbackAnswer,
			Category:       category,
			Sources:        final,
			FallbackReason: "synthesis_error",
		}, nil
	}

	uc.cache.Put(query, answerText)

	return &domain.Answer{
		Text:     answerText,
		Category: category,
		Sources:  final,
	}, nil
}

// retrieve embeds the query and runs the broad similarity search. Any
// retrieval-side failure collapses into "no knowledge found"; an empty
// result set is a valid state, not an error.
func (uc *ChatUseCase) retrieve(ctx context.Context, category domain.Category, query string) []domain.Candidate {
	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		uc.logger.Warn("query_embedding_failed", "error", err)
		return nil
	}

	candidates, err := uc.index.Search(ctx, category, queryVector, uc.opts.SearchBreadth, domain.SearchFilter{})
	if err != nil {
		uc.logger.Warn("similarity_search_failed", "error", err, "category", string(category))
		return nil
	}
	return candidates
}

// buildContext assembles the synthesis context block: a bounded trailing
// window of the conversation followed by the ranked evidence.
func (uc *ChatUseCase) buildContext(final []domain.Candidate, history []domain.ChatTurn) string {
	var b strings.Builder

	if window := trailingWindow(history, uc.opts.HistoryWindow); len(window) > 0 {
		b.WriteString("KONTEKS PERCAKAPAN SEBELUMNYA:\n")
		for _, turn := range window {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("KONTEKS DATASET:\n")
	for idx, candidate := range final {
		fmt.Fprintf(&b, "[%d]", idx+1)
		if candidate.Record.QuestionHint != "" {
			fmt.Fprintf(&b, " Q: %s", candidate.Record.QuestionHint)
		}
		if product := candidate.Record.Metadata.ProductName; product != "" {
			fmt.Fprintf(&b, " (produk: %s)", product)
		}
		fmt.Fprintf(&b, "\n%s\n\n", candidate.Record.Body)
	}
	return b.String()
}

func trailingWindow(history []domain.ChatTurn, size int) []domain.ChatTurn {
	if len(history) <= size {
		return history
	}
	return history[len(history)-size:]
}
