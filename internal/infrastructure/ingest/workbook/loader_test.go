package workbook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

type storageFake struct {
	files map[string][]byte
}

func (s *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[key] = b
	return nil
}

func (s *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("no such key %q", key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func csvSource(t *testing.T, content string) (*Loader, *domain.Source) {
	t.Helper()
	storage := &storageFake{files: map[string][]byte{
		"src-1_faq.csv": []byte(content),
	}}
	source := &domain.Source{
		ID:          "src-1",
		Filename:    "faq.csv",
		StoragePath: "src-1_faq.csv",
	}
	return NewLoader(storage), source
}

func TestLoadCSVMapsColumnsToRecords(t *testing.T) {
	loader, source := csvSource(t, strings.Join([]string{
		"question,answer,category,category_topic,product_name,insurance_type,topic_focus,coverage_keyword,action_type,entity,source",
		`Apa itu SmartHome?,SmartHome melindungi rumah dari kebakaran.,product_sales,produk,SmartHome,properti,manfaat,kebakaran,,AXA,faq_2024.xlsx`,
		`Bagaimana cara klaim?,Hubungi Customer Care AXA.,customer_corporate,layanan,,,klaim,,ajukan,,`,
	}, "\n"))

	records, err := loader.Load(context.Background(), source)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	first := records[0]
	if first.ID != "src-1:2" {
		t.Fatalf("id = %q, want deterministic src-1:2", first.ID)
	}
	if first.Category != domain.CategoryProductSales {
		t.Fatalf("category = %q", first.Category)
	}
	if first.QuestionHint != "Apa itu SmartHome?" || !strings.Contains(first.Body, "kebakaran") {
		t.Fatalf("record = %+v", first)
	}
	if first.Metadata.ProductName != "SmartHome" || first.Metadata.Source != "faq_2024.xlsx" {
		t.Fatalf("metadata = %+v", first.Metadata)
	}

	second := records[1]
	if second.Category != domain.CategoryCustomerCorporate {
		t.Fatalf("second category = %q", second.Category)
	}
	if second.Metadata.Source != "faq.csv" {
		t.Fatalf("empty source column must default to the filename, got %q", second.Metadata.Source)
	}
	if second.Metadata.ProductName != "" {
		t.Fatalf("absent metadata must stay empty, got %q", second.Metadata.ProductName)
	}
}

func TestLoadSkipsFullyEmptyRows(t *testing.T) {
	loader, source := csvSource(t, strings.Join([]string{
		"question,answer,category",
		"Apa itu SmartHome?,Proteksi rumah.,product_sales",
		",,",
		"Cara klaim?,Hubungi kami.,customer_corporate",
	}, "\n"))

	records, err := loader.Load(context.Background(), source)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want blank row skipped", len(records))
	}
}

func TestLoadRejectsUnknownCategoryWithRowNumber(t *testing.T) {
	loader, source := csvSource(t, strings.Join([]string{
		"question,answer,category",
		"q1,a1,product_sales",
		"q2,a2,general_chitchat",
	}, "\n"))

	_, err := loader.Load(context.Background(), source)
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 3") {
		t.Fatalf("error should name the offending row, got %v", err)
	}
}

func TestLoadRejectsMissingRequiredColumn(t *testing.T) {
	loader, source := csvSource(t, strings.Join([]string{
		"question,category",
		"q1,product_sales",
	}, "\n"))

	_, err := loader.Load(context.Background(), source)
	if err == nil || !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing answer column, got %v", err)
	}
}

func TestLoadXLSXMatchesCSVSemantics(t *testing.T) {
	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]any{
		{"question", "answer", "category", "product_name"},
		{"Apa itu SmartTravel?", "Asuransi perjalanan.", "product_sales", "SmartTravel"},
	}
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := book.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	storage := &storageFake{files: map[string][]byte{"src-2_faq.xlsx": buf.Bytes()}}
	source := &domain.Source{ID: "src-2", Filename: "faq.xlsx", StoragePath: "src-2_faq.xlsx"}

	records, err := NewLoader(storage).Load(context.Background(), source)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Metadata.ProductName != "SmartTravel" {
		t.Fatalf("metadata = %+v", records[0].Metadata)
	}
}
