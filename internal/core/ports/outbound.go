package ports

import (
	"context"
	"io"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

// Embedder builds vectors for record bodies and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the dual-collection semantic index: one independent
// collection per category. Upsert is idempotent by record id.
type VectorIndex interface {
	Upsert(ctx context.Context, category domain.Category, records []domain.Record, vectors [][]float32) error
	Search(ctx context.Context, category domain.Category, queryVector []float32, topK int, filter domain.SearchFilter) ([]domain.Candidate, error)
	Scroll(ctx context.Context, category domain.Category, limit int, filter domain.SearchFilter) ([]domain.Record, error)
	DeleteByID(ctx context.Context, category domain.Category, recordID string) error
}

// IntentClassifier asks the language model for a single category label.
// Callers own the fail-open behavior; implementations just report errors.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, query string) (string, error)
}

// AnswerGenerator turns a question plus an assembled context block into the
// final user-facing text. Treated as opaque, slow and fallible.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error)
}

// AnswerCache maps normalized queries to previously synthesized answers.
type AnswerCache interface {
	Get(query string) (string, bool)
	Put(query, answer string)
	Len() int
}

// SourceRepository persists ingestion source state.
type SourceRepository interface {
	Create(ctx context.Context, src *domain.Source) error
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	UpdateStatus(ctx context.Context, id string, status domain.SourceStatus, errMessage string) error
	SaveCounts(ctx context.Context, id string, total, product, customer int) error
}

// ObjectStorage stores uploaded FAQ workbooks.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes source ingestion events.
type MessageQueue interface {
	PublishSourceIngested(ctx context.Context, sourceID string) error
	SubscribeSourceIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// RecordLoader parses a stored workbook into records. Rows with an unknown
// category are rejected, not silently dropped.
type RecordLoader interface {
	Load(ctx context.Context, src *domain.Source) ([]domain.Record, error)
}
