package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
	"github.com/karisazi/faq-chatbot/internal/core/ports"
)

// ProcessSourceUseCase runs on the worker: it parses a registered workbook
// into records, embeds their bodies and upserts them into the category
// indexes. Re-processing the same source is safe because upserts are
// idempotent by record id.
type ProcessSourceUseCase struct {
	repo     ports.SourceRepository
	loader   ports.RecordLoader
	embedder ports.Embedder
	index    ports.VectorIndex
}

func NewProcessSourceUseCase(
	repo ports.SourceRepository,
	loader ports.RecordLoader,
	embedder ports.Embedder,
	index ports.VectorIndex,
) *ProcessSourceUseCase {
	return &ProcessSourceUseCase{
		repo:     repo,
		loader:   loader,
		embedder: embedder,
		index:    index,
	}
}

func (uc *ProcessSourceUseCase) ProcessByID(ctx context.Context, sourceID string) error {
	if err := uc.repo.UpdateStatus(ctx, sourceID, domain.SourceProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	counts, err := uc.processPipeline(ctx, sourceID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, sourceID, domain.SourceFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveCounts(ctx, sourceID, counts.total, counts.product, counts.customer); err != nil {
		return fmt.Errorf("save record counts: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, sourceID, domain.SourceReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

type categoryCounts struct {
	total    int
	product  int
	customer int
}

func (uc *ProcessSourceUseCase) processPipeline(ctx context.Context, sourceID string) (categoryCounts, error) {
	src, err := uc.repo.GetByID(ctx, sourceID)
	if err != nil {
		return categoryCounts{}, fmt.Errorf("fetch source by id: %w", err)
	}

	records, err := uc.loader.Load(ctx, src)
	if err != nil {
		return categoryCounts{}, fmt.Errorf("load records: %w", err)
	}
	if len(records) == 0 {
		return categoryCounts{}, domain.WrapError(domain.ErrInvalidInput, "load records",
			errors.New("workbook produced zero records"))
	}

	counts := categoryCounts{total: len(records)}
	byCategory := make(map[domain.Category][]domain.Record, 2)
	for _, record := range records {
		byCategory[record.Category] = append(byCategory[record.Category], record)
		switch record.Category {
		case domain.CategoryProductSales:
			counts.product++
		case domain.CategoryCustomerCorporate:
			counts.customer++
		}
	}

	for category, batch := range byCategory {
		if err := uc.indexBatch(ctx, category, batch); err != nil {
			return categoryCounts{}, err
		}
	}
	return counts, nil
}

func (uc *ProcessSourceUseCase) indexBatch(ctx context.Context, category domain.Category, batch []domain.Record) error {
	texts := make([]string, len(batch))
	for i, record := range batch {
		texts[i] = record.Body
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %s records: %w", category, err)
	}
	if len(vectors) != len(batch) {
		return domain.WrapError(domain.ErrInvalidInput, "embed records",
			fmt.Errorf("vectors/records mismatch: %d/%d", len(vectors), len(batch)))
	}

	if err := uc.index.Upsert(ctx, category, batch, vectors); err != nil {
		return fmt.Errorf("upsert %s records: %w", category, err)
	}
	return nil
}
