package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
	"github.com/karisazi/faq-chatbot/internal/core/ports"
)

// IngestSourceUseCase accepts an FAQ workbook upload, registers it and
// schedules asynchronous indexing through the message queue.
type IngestSourceUseCase struct {
	repo    ports.SourceRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestSourceUseCase(
	repo ports.SourceRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestSourceUseCase {
	return &IngestSourceUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestSourceUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Source, error) {
	if !supportedWorkbook(filename) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload source",
			fmt.Errorf("unsupported file type: %s (expected .xlsx or .csv)", filename))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save workbook to storage: %w", err)
	}

	src := &domain.Source{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		Status:      domain.SourceUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, src); err != nil {
		return nil, fmt.Errorf("create source registry row: %w", err)
	}

	if err := uc.queue.PublishSourceIngested(ctx, src.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return src, nil
}

func supportedWorkbook(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".csv":
		return true
	default:
		return false
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "workbook.bin"
	}
	return base
}
