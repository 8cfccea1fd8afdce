package ports

import (
	"context"
	"io"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

// ChatService is the inbound contract for end-to-end question answering.
type ChatService interface {
	Answer(ctx context.Context, query string, history []domain.ChatTurn) (*domain.Answer, error)
}

// SourceIngestor accepts a workbook upload and schedules indexing.
type SourceIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Source, error)
}

// SourceProcessor is the asynchronous indexing side of ingestion.
type SourceProcessor interface {
	ProcessByID(ctx context.Context, sourceID string) error
}

// SourceReader is the read model for source state.
type SourceReader interface {
	GetByID(ctx context.Context, id string) (*domain.Source, error)
}
