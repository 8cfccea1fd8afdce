// Package workbook turns uploaded FAQ spreadsheets into indexable records.
// Both .xlsx and .csv carry the same header-addressed columns.
package workbook

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
	"github.com/karisazi/faq-chatbot/internal/core/ports"
)

// Column headers recognized in uploaded workbooks. question and answer are
// required; category decides the index side; the rest feed the re-ranker.
const (
	colQuestion = "question"
	colAnswer   = "answer"
	colCategory = "category"

	colCategoryTopic   = "category_topic"
	colProductName     = "product_name"
	colInsuranceType   = "insurance_type"
	colTopicFocus      = "topic_focus"
	colCoverageKeyword = "coverage_keyword"
	colActionType      = "action_type"
	colEntity          = "entity"
	colSource          = "source"
)

type Loader struct {
	storage ports.ObjectStorage
}

func NewLoader(storage ports.ObjectStorage) *Loader {
	return &Loader{storage: storage}
}

func (l *Loader) Load(ctx context.Context, source *domain.Source) ([]domain.Record, error) {
	file, err := l.storage.Open(ctx, source.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", source.ID, err)
	}
	defer file.Close()

	var rows [][]string
	switch strings.ToLower(filepath.Ext(source.Filename)) {
	case ".xlsx":
		rows, err = readWorkbookRows(file)
	case ".csv":
		rows, err = readCSVRows(file)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "load source",
			fmt.Errorf("unsupported file %q", source.Filename))
	}
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", source.ID, err)
	}

	return rowsToRecords(source, rows)
}

func readWorkbookRows(r io.Reader) ([][]string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func rowsToRecords(source *domain.Source, rows [][]string) ([]domain.Record, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	columns := headerIndex(rows[0])
	for _, required := range []string{colQuestion, colAnswer, colCategory} {
		if _, ok := columns[required]; !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load source",
				fmt.Errorf("missing required column %q", required))
		}
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		question := cell(row, columns, colQuestion)
		answer := cell(row, columns, colAnswer)
		if question == "" && answer == "" {
			continue
		}
		if answer == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load source",
				fmt.Errorf("row %d: empty answer", rowNum))
		}

		category, err := domain.ParseCategory(cell(row, columns, colCategory))
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "load source",
				fmt.Errorf("row %d: %w", rowNum, err))
		}

		recordSource := cell(row, columns, colSource)
		if recordSource == "" {
			recordSource = source.Filename
		}

		records = append(records, domain.Record{
			// Deterministic per source and row, so reprocessing the same
			// upload replaces records instead of duplicating them.
			ID:           fmt.Sprintf("%s:%d", source.ID, rowNum),
			Body:         answer,
			QuestionHint: question,
			Category:     category,
			Metadata: domain.RecordMetadata{
				CategoryTopic:   cell(row, columns, colCategoryTopic),
				ProductName:     cell(row, columns, colProductName),
				InsuranceType:   cell(row, columns, colInsuranceType),
				TopicFocus:      cell(row, columns, colTopicFocus),
				CoverageKeyword: cell(row, columns, colCoverageKeyword),
				ActionType:      cell(row, columns, colActionType),
				Entity:          cell(row, columns, colEntity),
				Source:          recordSource,
			},
		})
	}
	return records, nil
}

func headerIndex(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		columns[key] = i
	}
	return columns
}

func cell(row []string, columns map[string]int, name string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
